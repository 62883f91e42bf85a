package reconcile

import (
	"fmt"

	"stock-reconciler/internal/config"
)

// DiscrepancyPolicy decide contra qué valor teórico se compara un conteo físico
type DiscrepancyPolicy interface {
	Name() string
	Discrepancy(observed, previousClose, sameDayDelta int) int
}

// PreviousClose compara contra el cierre del día anterior: observed - previousClose
type PreviousClose struct{}

func (PreviousClose) Name() string { return config.PolicyPreviousClose }

func (PreviousClose) Discrepancy(observed, previousClose, _ int) int {
	return observed - previousClose
}

// SameDayTheoretical incluye los movimientos del mismo día en el valor esperado:
// observed - (previousClose + sameDayDelta)
type SameDayTheoretical struct{}

func (SameDayTheoretical) Name() string { return config.PolicySameDay }

func (SameDayTheoretical) Discrepancy(observed, previousClose, sameDayDelta int) int {
	return observed - (previousClose + sameDayDelta)
}

// NewDiscrepancyPolicy resuelve la política por nombre de configuración
func NewDiscrepancyPolicy(name string) (DiscrepancyPolicy, error) {
	switch name {
	case config.PolicyPreviousClose, "":
		return PreviousClose{}, nil
	case config.PolicySameDay:
		return SameDayTheoretical{}, nil
	}
	return nil, fmt.Errorf("unknown discrepancy policy %q", name)
}
