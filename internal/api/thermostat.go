package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/climate-bridge/internal/climate"
)

// setTargetRequest is the body of PUT /thermostat/target.
type setTargetRequest struct {
	TargetTemperature *float64 `json:"target_temperature"`
}

// setModeRequest is the body of PUT /thermostat/mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// handleGetThermostat returns the current snapshot.
func (s *Server) handleGetThermostat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.thermostat.Snapshot())
}

// handleSetTarget changes the setpoint. The stored value is clamped and
// rounded; the response carries the snapshot that reflects it.
func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req setTargetRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TargetTemperature == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "target_temperature is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mutationTimeout)
	defer cancel()

	stored, err := s.thermostat.SetTargetTemperature(ctx, *req.TargetTemperature)
	if err != nil {
		s.writeControllerError(w, r, err)
		return
	}

	s.logger.Info("setpoint changed via API",
		"requested", *req.TargetTemperature,
		"stored", stored,
		"request_id", requestIDFrom(r.Context()),
	)
	writeJSON(w, http.StatusOK, s.thermostat.Snapshot())
}

// handleSetMode switches between heat and off.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	mode, err := climate.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, `mode must be "heat" or "off"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mutationTimeout)
	defer cancel()

	if err := s.thermostat.SetMode(ctx, mode); err != nil {
		s.writeControllerError(w, r, err)
		return
	}

	s.logger.Info("mode changed via API",
		"mode", mode,
		"request_id", requestIDFrom(r.Context()),
	)
	writeJSON(w, http.StatusOK, s.thermostat.Snapshot())
}

// writeControllerError maps a controller mutator error to a response.
func (s *Server) writeControllerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, climate.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, climate.ErrControllerStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		s.logger.Warn("thermostat change not applied",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeUnavailable(w, "thermostat controller is not available")
	default:
		s.logger.Error("thermostat change failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeInternalError(w, "internal server error")
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
