package models

import "time"

// DayLayout formato de fecha de negocio usado en las tablas
const DayLayout = "2006-01-02"

// Day retorna el día calendario de t en loc, normalizado a medianoche UTC
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date construye un día de negocio
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysBetween cuenta días completos de a hasta b (negativo si b es anterior)
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// FormatDay formatea un día de negocio como YYYY-MM-DD
func FormatDay(day time.Time) string {
	if day.IsZero() {
		return ""
	}
	return day.Format(DayLayout)
}

// IntPtr helper para campos opcionales
func IntPtr(v int) *int {
	return &v
}

// TimePtr helper para campos opcionales
func TimePtr(t time.Time) *time.Time {
	return &t
}
