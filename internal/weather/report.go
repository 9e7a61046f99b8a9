package weather

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Renderer turns a forecast into display rows for one language.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer creates a Renderer that formats numbers for the given language.
func NewRenderer(tag language.Tag) *Renderer {
	return &Renderer{printer: message.NewPrinter(tag)}
}

// Days renders every forecast day with the given drizzle preference.
func (r *Renderer) Days(f SevenDayForecast, coverIfDrizzle bool) []DayReport {
	rows := make([]DayReport, 0, len(f.Days))
	for i, d := range f.Days {
		row := DayReport{
			Date:            d.Date,
			Label:           DayLabel(i, d.Date),
			Condition:       d.Condition,
			Status:          StatusText(d.Condition),
			Advice:          AdviseCover(d.Condition, coverIfDrizzle),
			PrecipitationMm: d.PrecipitationMm,
		}
		if d.PrecipitationMm != nil {
			row.Precipitation = r.Precipitation(*d.PrecipitationMm)
		}
		rows = append(rows, row)
	}
	return rows
}

// Precipitation formats a millimetre amount, e.g. "2.3 mm" ("2,3 mm" in German).
// Whole amounts carry no decimal: "12 mm", "0 mm".
func (r *Renderer) Precipitation(mm float64) string {
	if mm == math.Trunc(mm) {
		return r.printer.Sprintf("%.0f mm", mm)
	}
	return r.printer.Sprintf("%.1f mm", mm)
}
