package reconcile

import (
	"testing"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotExclusionAfterFullRecovery(t *testing.T) {
	products := models.ProductSet{"P1": {Code: "P1", IsManaged: true}}
	early, late := day(2024, 2, 1), day(2024, 3, 1)
	txs := []models.Transaction{
		delivery("P1", day(2024, 1, 1), 10, early),
		delivery("P1", day(2024, 1, 2), 10, late),
		recovery("P1", day(2024, 1, 3), 4, early),
		recovery("P1", day(2024, 1, 5), 6, early),
	}
	out := newTestEngine(PreviousClose{}, AlertLead{}).Run(txs, products, RunOptions{
		WindowStart: day(2024, 1, 1),
		End:         day(2024, 1, 10),
	})
	rows := byDate(out.Rows, "P1")

	for d := 1; d <= 4; d++ {
		assert.Equal(t, early, *rows[day(2024, 1, d)].OldestExpirationDate, "day %d", d)
	}
	for d := 5; d <= 10; d++ {
		assert.Equal(t, late, *rows[day(2024, 1, d)].OldestExpirationDate, "consumed lot excluded on day %d", d)
	}
}

func TestNoRemainingLotsMeansNullProjection(t *testing.T) {
	products := models.ProductSet{"P1": {Code: "P1", AlertDays: 2, IsManaged: true}}
	exp := day(2024, 2, 1)
	txs := []models.Transaction{
		delivery("P1", day(2024, 1, 1), 5, exp),
		recovery("P1", day(2024, 1, 2), 5, exp),
		sale("P1", day(2024, 1, 3), 1),
	}
	out := newTestEngine(PreviousClose{}, AlertLead{}).Run(txs, products, RunOptions{
		WindowStart: day(2024, 1, 1),
		End:         day(2024, 1, 3),
	})
	rows := byDate(out.Rows, "P1")
	assert.NotNil(t, rows[day(2024, 1, 1)].OldestExpirationDate)
	assert.Nil(t, rows[day(2024, 1, 2)].OldestExpirationDate)
	assert.Nil(t, rows[day(2024, 1, 2)].DaysUntilMustSell)
	assert.Equal(t, -1, rows[day(2024, 1, 3)].ClosingStock)
}

func TestLotsBeforeBaselineAreCounted(t *testing.T) {
	products := models.ProductSet{"P1": {Code: "P1", IsManaged: true}}
	txs := []models.Transaction{
		delivery("P1", day(2024, 1, 1), 5, day(2024, 2, 1)),
		stocktake("P1", day(2024, 1, 10), 5),
	}
	out := newTestEngine(PreviousClose{}, AlertLead{}).Run(txs, products, RunOptions{
		WindowStart: day(2024, 1, 15),
		End:         day(2024, 1, 16),
	})
	rows := byDate(out.Rows, "P1")
	require.NotNil(t, rows[day(2024, 1, 10)].OldestExpirationDate)
	assert.Equal(t, day(2024, 2, 1), *rows[day(2024, 1, 16)].OldestExpirationDate)
}

func TestAlertLeadPolicy(t *testing.T) {
	p := models.Product{AlertDays: 3}
	days, ok := AlertLead{}.DaysUntilMustSell(day(2024, 2, 1), day(2024, 1, 20), p)
	require.True(t, ok)
	assert.Equal(t, 12-3, days)

	days, ok = AlertLead{}.DaysUntilMustSell(day(2024, 2, 1), day(2024, 2, 5), p)
	require.True(t, ok)
	assert.Equal(t, -7, days, "expired lots project negative days")
}

func TestRuleOfThirdsPolicy(t *testing.T) {
	days, ok := RuleOfThirds{}.DaysUntilMustSell(day(2024, 2, 1), day(2024, 1, 1), models.Product{ShelfLifeDays: 9, AlertDays: 100})
	require.True(t, ok)
	assert.Equal(t, 28, days, "sell-by is three days before expiry, alert days ignored")

	days, ok = RuleOfThirds{}.DaysUntilMustSell(day(2024, 2, 1), day(2024, 1, 1), models.Product{ShelfLifeDays: 10})
	require.True(t, ok)
	assert.Equal(t, 28, days, "floor(10/3) = 3")

	_, ok = RuleOfThirds{}.DaysUntilMustSell(day(2024, 2, 1), day(2024, 1, 1), models.Product{})
	assert.False(t, ok, "no shelf life, no projection")
}

func TestRuleOfThirdsInEngine(t *testing.T) {
	products := models.ProductSet{
		"P1": {Code: "P1", ShelfLifeDays: 9, IsManaged: true},
		"P2": {Code: "P2", IsManaged: true},
	}
	txs := []models.Transaction{
		delivery("P1", day(2024, 1, 1), 5, day(2024, 2, 1)),
		delivery("P2", day(2024, 1, 1), 5, day(2024, 2, 1)),
	}
	out := newTestEngine(PreviousClose{}, RuleOfThirds{}).Run(txs, products, RunOptions{
		WindowStart: day(2024, 1, 1),
		End:         day(2024, 1, 1),
	})
	p1 := byDate(out.Rows, "P1")[day(2024, 1, 1)]
	p2 := byDate(out.Rows, "P2")[day(2024, 1, 1)]
	assert.Equal(t, 28, *p1.DaysUntilMustSell)
	require.NotNil(t, p2.OldestExpirationDate)
	assert.Nil(t, p2.DaysUntilMustSell)
}

func TestTrackerLots(t *testing.T) {
	tr := NewTracker("P1")
	tr.Apply(delivery("P1", day(2024, 1, 1), 5, day(2024, 3, 1)))
	tr.Apply(delivery("P1", day(2024, 1, 1), 5, day(2024, 2, 1)))
	tr.Apply(recovery("P1", day(2024, 1, 2), 5, day(2024, 2, 1)))
	tr.Apply(sale("P1", day(2024, 1, 2), 3))

	lots := tr.Lots()
	require.Len(t, lots, 2)
	assert.Equal(t, models.Lot{ProductCode: "P1", ExpirationDate: day(2024, 2, 1), Balance: 0}, lots[0])
	assert.False(t, lots[0].Remaining())
	assert.True(t, lots[1].Remaining())

	oldest, ok := tr.Oldest()
	require.True(t, ok)
	assert.Equal(t, day(2024, 3, 1), oldest)
}

func TestPolicyLookup(t *testing.T) {
	d, err := NewDiscrepancyPolicy(config.PolicySameDay)
	require.NoError(t, err)
	assert.Equal(t, config.PolicySameDay, d.Name())
	_, err = NewDiscrepancyPolicy("bogus")
	assert.Error(t, err)

	e, err := NewExpirationPolicy(config.PolicyRuleOfThirds)
	require.NoError(t, err)
	assert.Equal(t, config.PolicyRuleOfThirds, e.Name())
	_, err = NewExpirationPolicy("bogus")
	assert.Error(t, err)
}

func TestCommonStartDate(t *testing.T) {
	var txs []models.Transaction
	for d := 1; d <= 11; d++ {
		txs = append(txs, stocktake("A", day(2024, 1, d), 1), stocktake("B", day(2024, 1, d), 1))
	}
	_, ok := CommonStartDate(txs, 12)
	assert.False(t, ok, "11 distinct dates are not enough")

	txs = append(txs, stocktake("C", day(2023, 12, 31), 1), sale("A", day(2023, 1, 1), 1))
	anchor, ok := CommonStartDate(txs, 12)
	require.True(t, ok)
	assert.Equal(t, day(2023, 12, 31), anchor)
}
