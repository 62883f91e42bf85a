package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"stock-reconciler/internal/models"

	"github.com/xuri/excelize/v2"
)

// Serial de Excel más bajo aceptado como fecha (1927-05-18); evita leer cantidades como fechas
const minExcelSerial = 10000

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05",
}

// ParseDate interpreta una celda como día de negocio en loc.
// Acepta fechas ISO y con barras, RFC3339 y números de serie de Excel.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return models.Day(t, loc), nil
}

// ParseTimestamp interpreta una celda de fecha y hora; las horas sin zona se leen en loc
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= minExcelSerial && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// ParseInt interpreta cantidades enteras; tolera separadores de miles y "10.0"
func ParseInt(raw string) (int, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", value)
	}
	if math.Mod(f, 1) != 0 {
		return 0, fmt.Errorf("must be an integer: %q", value)
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, fmt.Errorf("out of range: %q", value)
	}
	return int(f), nil
}

// ParseBool acepta las marcas habituales de "gestionado" en las planillas
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "on", "有", "○", "◯", "✓":
		return true
	}
	return false
}

// FormatInt escribe un entero opcional; nil queda en blanco
func FormatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// FormatDate escribe una fecha opcional; nil queda en blanco
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return models.FormatDay(*t)
}
