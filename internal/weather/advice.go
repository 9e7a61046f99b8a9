package weather

import "time"

// Recommendation is the binary coverage advice for a parked car.
type Recommendation string

const (
	RecommendCover     Recommendation = "cover"
	RecommendDontCover Recommendation = "dont-cover"
)

// Advice pairs a recommendation with its display text.
type Advice struct {
	Recommendation Recommendation `json:"recommendation"`
	Text           string         `json:"text"`
}

// StatusText returns the display status for a condition.
func StatusText(c Condition) string {
	switch c {
	case ConditionRain:
		return "Heavy rain ☔️"
	case ConditionDrizzle:
		return "Drizzle 🌦"
	default:
		return "No rain 🌤"
	}
}

// AdviseCover decides whether the car should be covered. Drizzle is the only
// condition whose outcome depends on coverIfDrizzle.
func AdviseCover(c Condition, coverIfDrizzle bool) Advice {
	switch c {
	case ConditionRain:
		return Advice{Recommendation: RecommendDontCover, Text: "Don’t cover the car"}
	case ConditionDrizzle:
		if coverIfDrizzle {
			return Advice{Recommendation: RecommendCover, Text: "Cover the car (drizzle OK)"}
		}
		return Advice{Recommendation: RecommendDontCover, Text: "Don’t cover (treat drizzle as rain)"}
	default:
		return Advice{Recommendation: RecommendCover, Text: "Cover the car"}
	}
}

// DayLabel returns "Today" for the first row and a short weekday plus day of
// month ("Wed 20") for the rest. Dates that do not parse are returned as-is.
func DayLabel(index int, date string) string {
	if index == 0 {
		return "Today"
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return d.Format("Mon 2")
}
