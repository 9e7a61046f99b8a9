package weather

// Classify maps an Open-Meteo (WMO) weather code to a Condition.
// Ranges are inclusive; any code not listed maps to ConditionNone.
//
//   - 0-3, 45, 48            => none (clear / clouds / fog)
//   - 51-57                  => drizzle
//   - 61-67, 80-82, 95-99    => rain / showers / thunder
func Classify(code int) Condition {
	switch {
	case code >= 51 && code <= 57:
		return ConditionDrizzle
	case (code >= 61 && code <= 67) ||
		(code >= 80 && code <= 82) ||
		(code >= 95 && code <= 99):
		return ConditionRain
	default:
		return ConditionNone
	}
}
