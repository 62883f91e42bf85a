package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stock-reconciler/internal/cache"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/tabular"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService consultas de solo lectura sobre el resumen materializado
type InventoryService interface {
	GetLatest(ctx context.Context, date string) (*models.InventorySnapshot, error)
	GetManagedProducts(ctx context.Context) ([]models.Product, error)
	GetHistory(ctx context.Context, code string, query models.HistoryQuery) ([]models.InventoryRow, error)
	GetDiscrepancies(ctx context.Context, query models.HistoryQuery) ([]models.InventoryRow, error)
}

type inventoryService struct {
	summary  repository.SummaryRepository
	products repository.ProductRepository
	cache    *cache.SummaryCache
	loc      *time.Location
	logger   *zap.Logger
}

// NewInventoryService summaryCache puede ser nil
func NewInventoryService(summary repository.SummaryRepository, products repository.ProductRepository, summaryCache *cache.SummaryCache, loc *time.Location, logger *zap.Logger) InventoryService {
	return &inventoryService{
		summary:  summary,
		products: products,
		cache:    summaryCache,
		loc:      loc,
		logger:   logger,
	}
}

// GetLatest filas de un día; sin fecha usa el último día presente en el resumen
func (s *inventoryService) GetLatest(ctx context.Context, date string) (*models.InventorySnapshot, error) {
	logger := s.logger.With(zap.String("operation", "get_latest"), zap.String("date", date))

	rows, err := s.rows(ctx)
	if err != nil {
		logger.Error("❌ Error leyendo resumen", zap.Error(err))
		return nil, err
	}

	var day time.Time
	if date != "" {
		if day, err = s.parseDay(date); err != nil {
			return nil, err
		}
	} else {
		for _, row := range rows {
			if row.Date.After(day) {
				day = row.Date
			}
		}
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &models.InventorySnapshot{Date: models.FormatDay(day), Rows: []models.InventoryRow{}}
	for _, row := range rows {
		if row.Date.Equal(day) {
			snapshot.Rows = append(snapshot.Rows, toInventoryRow(row, catalog))
		}
	}
	sort.Slice(snapshot.Rows, func(i, j int) bool {
		return snapshot.Rows[i].ProductCode < snapshot.Rows[j].ProductCode
	})
	snapshot.TotalItems = len(snapshot.Rows)

	logger.Debug("🔍 [DEBUG] Snapshot calculado", zap.Int("rows", snapshot.TotalItems))
	return snapshot, nil
}

func (s *inventoryService) GetManagedProducts(ctx context.Context) ([]models.Product, error) {
	all, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	managed := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.IsManaged {
			managed = append(managed, p)
		}
	}
	return managed, nil
}

// GetHistory filas de un producto en [from, to], ascendente por fecha
func (s *inventoryService) GetHistory(ctx context.Context, code string, query models.HistoryQuery) ([]models.InventoryRow, error) {
	query.ProductCode = code
	return s.filter(ctx, query, func(models.DailySummaryRow) bool { return true })
}

// GetDiscrepancies filas con discrepancia distinta de cero
func (s *inventoryService) GetDiscrepancies(ctx context.Context, query models.HistoryQuery) ([]models.InventoryRow, error) {
	return s.filter(ctx, query, func(row models.DailySummaryRow) bool {
		return row.Discrepancy != nil && *row.Discrepancy != 0
	})
}

func (s *inventoryService) filter(ctx context.Context, query models.HistoryQuery, keep func(models.DailySummaryRow) bool) ([]models.InventoryRow, error) {
	from, to, err := s.parseRange(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	var selected []models.DailySummaryRow
	for _, row := range rows {
		if query.ProductCode != "" && row.ProductCode != query.ProductCode {
			continue
		}
		if !from.IsZero() && row.Date.Before(from) {
			continue
		}
		if !to.IsZero() && row.Date.After(to) {
			continue
		}
		if keep(row) {
			selected = append(selected, row)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].Date.Equal(selected[j].Date) {
			return selected[i].Date.Before(selected[j].Date)
		}
		return selected[i].ProductCode < selected[j].ProductCode
	})

	out := make([]models.InventoryRow, 0, len(selected))
	for _, row := range selected {
		out = append(out, toInventoryRow(row, catalog))
	}
	return out, nil
}

func (s *inventoryService) rows(ctx context.Context) ([]models.DailySummaryRow, error) {
	if s.cache != nil {
		if rows, ok := s.cache.GetRows(ctx); ok {
			return rows, nil
		}
	}
	snapshot, err := s.summary.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	if s.cache != nil {
		s.cache.SetRows(ctx, snapshot.Rows)
	}
	return snapshot.Rows, nil
}

func (s *inventoryService) allProducts(ctx context.Context) ([]models.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.GetProducts(ctx); ok {
			return products, nil
		}
	}
	products, err := s.products.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if s.cache != nil {
		s.cache.SetProducts(ctx, products)
	}
	return products, nil
}

func (s *inventoryService) catalog(ctx context.Context) (map[string]models.Product, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]models.Product, len(products))
	for _, p := range products {
		catalog[p.Code] = p
	}
	return catalog, nil
}

func (s *inventoryService) parseDay(raw string) (time.Time, error) {
	day, err := tabular.ParseDate(raw, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidQuery, raw)
	}
	return day, nil
}

func (s *inventoryService) parseRange(query models.HistoryQuery) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if query.From != "" {
		if from, err = s.parseDay(query.From); err != nil {
			return from, to, err
		}
	}
	if query.To != "" {
		if to, err = s.parseDay(query.To); err != nil {
			return from, to, err
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, fmt.Errorf("%w: from %s is after to %s", ErrInvalidQuery, query.From, query.To)
	}
	return from, to, nil
}

func toInventoryRow(row models.DailySummaryRow, catalog map[string]models.Product) models.InventoryRow {
	product := catalog[row.ProductCode]
	out := models.InventoryRow{
		Date:              models.FormatDay(row.Date),
		ProductCode:       row.ProductCode,
		ProductName:       product.Name,
		ExternalCode:      product.ExternalCode,
		ClosingStock:      row.ClosingStock,
		PhysicalCount:     row.PhysicalCount,
		Discrepancy:       row.Discrepancy,
		DaysUntilMustSell: row.DaysUntilMustSell,
		StandardStock:     product.StandardStock,
		StockRatio:        stockRatio(row.ClosingStock, product.StandardStock),
	}
	if row.OldestExpirationDate != nil {
		formatted := models.FormatDay(*row.OldestExpirationDate)
		out.OldestExpirationDate = &formatted
	}
	return out
}

// stockRatio closing / standard * 100 con dos decimales; nil sin stock estándar
func stockRatio(closing, standard int) *float64 {
	if standard <= 0 {
		return nil
	}
	ratio, _ := decimal.NewFromInt(int64(closing)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(standard))).
		Round(2).
		Float64()
	return &ratio
}
