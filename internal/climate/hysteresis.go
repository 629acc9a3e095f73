package climate

// DefaultHysteresis is the half-width of the deadband around the setpoint (°C).
const DefaultHysteresis = 0.5

// NextHeatingState applies the deadband rule.
//
// In ModeOff heating is always off. In ModeHeat heating turns off at or above
// target+band and on below target-band; inside the band the previous state
// is kept.
func NextHeatingState(mode Mode, prev HeatingState, current, target, band float64) HeatingState {
	if mode != ModeHeat {
		return HeatingOff
	}

	switch {
	case current >= target+band:
		return HeatingOff
	case current < target-band:
		return HeatingHeat
	default:
		return prev
	}
}
