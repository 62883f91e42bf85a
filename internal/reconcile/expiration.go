package reconcile

import (
	"fmt"
	"sort"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
)

// ExpirationPolicy calcula los días que quedan para vender el lote más antiguo
type ExpirationPolicy interface {
	Name() string
	DaysUntilMustSell(oldest, day time.Time, product models.Product) (int, bool)
}

// AlertLead días hasta el vencimiento menos los días de alerta del producto
type AlertLead struct{}

func (AlertLead) Name() string { return config.PolicyAlertLead }

func (AlertLead) DaysUntilMustSell(oldest, day time.Time, product models.Product) (int, bool) {
	return models.DaysBetween(day, oldest) - product.AlertDays, true
}

// RuleOfThirds vender antes de que quede un tercio de la vida útil.
// Sin vida útil configurada no hay proyección.
type RuleOfThirds struct{}

func (RuleOfThirds) Name() string { return config.PolicyRuleOfThirds }

func (RuleOfThirds) DaysUntilMustSell(oldest, day time.Time, product models.Product) (int, bool) {
	if product.ShelfLifeDays <= 0 {
		return 0, false
	}
	sellBy := models.AddDays(oldest, -(product.ShelfLifeDays / 3))
	return models.DaysBetween(day, sellBy), true
}

// NewExpirationPolicy resuelve la política por nombre de configuración
func NewExpirationPolicy(name string) (ExpirationPolicy, error) {
	switch name {
	case config.PolicyAlertLead, "":
		return AlertLead{}, nil
	case config.PolicyRuleOfThirds:
		return RuleOfThirds{}, nil
	}
	return nil, fmt.Errorf("unknown expiration policy %q", name)
}

// Tracker saldo por lote (fecha de vencimiento) de un producto
type Tracker struct {
	productCode string
	balances    map[time.Time]int
}

func NewTracker(productCode string) *Tracker {
	return &Tracker{productCode: productCode, balances: make(map[time.Time]int)}
}

// Apply suma la cantidad con signo de entregas y retiros al lote de su vencimiento
func (t *Tracker) Apply(tx models.Transaction) {
	if !tx.HasLot() {
		return
	}
	t.balances[*tx.ExpirationDate] += tx.Quantity
}

// Oldest vencimiento más antiguo con saldo positivo
func (t *Tracker) Oldest() (time.Time, bool) {
	var (
		oldest time.Time
		found  bool
	)
	for exp, balance := range t.balances {
		if balance <= 0 {
			continue
		}
		if !found || exp.Before(oldest) {
			oldest, found = exp, true
		}
	}
	return oldest, found
}

// Lots todos los lotes conocidos ordenados por vencimiento
func (t *Tracker) Lots() []models.Lot {
	lots := make([]models.Lot, 0, len(t.balances))
	for exp, balance := range t.balances {
		lots = append(lots, models.Lot{ProductCode: t.productCode, ExpirationDate: exp, Balance: balance})
	}
	sort.Slice(lots, func(i, j int) bool {
		return lots[i].ExpirationDate.Before(lots[j].ExpirationDate)
	})
	return lots
}
