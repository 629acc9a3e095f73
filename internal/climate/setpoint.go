package climate

import "math"

// Setpoint limits.
const (
	MinTargetTemperature     = 10.0
	MaxTargetTemperature     = 30.0
	TargetTemperatureStep    = 0.5
	DefaultTargetTemperature = 20.0
)

// ClampTarget rounds v to the nearest 0.5 °C step (ties round up) and clamps
// it to [MinTargetTemperature, MaxTargetTemperature].
//
// NaN is returned unchanged; callers treat it as "no value".
func ClampTarget(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	rounded := math.Floor(v/TargetTemperatureStep+0.5) * TargetTemperatureStep
	return math.Min(math.Max(rounded, MinTargetTemperature), MaxTargetTemperature)
}
