package repository

import (
	"context"
	"fmt"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/tabular"

	"go.uber.org/zap"
)

// ProductRepository interface para el maestro de productos
type ProductRepository interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetManagedProducts(ctx context.Context) (models.ProductSet, error)
}

// productRepository implementación sobre la fuente tabular
type productRepository struct {
	src    tabular.Source
	table  config.ProductTable
	logger *zap.Logger
}

// NewProductRepository crea una nueva instancia del repository
func NewProductRepository(src tabular.Source, table config.ProductTable, logger *zap.Logger) ProductRepository {
	return &productRepository{
		src:    src,
		table:  table,
		logger: logger,
	}
}

// GetProducts lee todas las filas del maestro con código no vacío
func (r *productRepository) GetProducts(ctx context.Context) ([]models.Product, error) {
	rows, header, err := readWithHeader(ctx, r.src, r.table.TableRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read product master: %w", err)
	}
	if err := header.Require(r.table.CodeColumn, r.table.ManagedColumn); err != nil {
		return nil, fmt.Errorf("product master %s: %w", r.table.TableRef, err)
	}

	var (
		code          = header.Position(r.table.CodeColumn)
		name          = header.Position(r.table.NameColumn)
		externalCode  = header.Position(r.table.ExternalCodeColumn)
		shelfLife     = header.Position(r.table.ShelfLifeColumn)
		alertDays     = header.Position(r.table.AlertDaysColumn)
		standardStock = header.Position(r.table.StandardStockColumn)
		managed       = header.Position(r.table.ManagedColumn)
	)

	products := make([]models.Product, 0, len(rows)-1)
	seen := make(map[string]bool, len(rows)-1)
	for i, row := range rows[1:] {
		p := models.Product{
			Code:          tabular.Cell(row, code),
			Name:          tabular.Cell(row, name),
			ExternalCode:  tabular.Cell(row, externalCode),
			ShelfLifeDays: optionalInt(row, shelfLife),
			AlertDays:     optionalInt(row, alertDays),
			StandardStock: optionalInt(row, standardStock),
			IsManaged:     tabular.ParseBool(tabular.Cell(row, managed)),
		}
		if p.Code == "" {
			continue
		}
		if seen[p.Code] {
			r.logger.Debug("Duplicate product code, keeping first row",
				zap.String("code", p.Code),
				zap.Int("row", i+1),
			)
			continue
		}
		seen[p.Code] = true
		products = append(products, p)
	}
	return products, nil
}

// GetManagedProducts retorna solo los productos con control de inventario
func (r *productRepository) GetManagedProducts(ctx context.Context) (models.ProductSet, error) {
	products, err := r.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	set := make(models.ProductSet)
	for _, p := range products {
		if p.IsManaged {
			set[p.Code] = p
		}
	}
	return set, nil
}

func optionalInt(row []string, idx int) int {
	n, err := tabular.ParseInt(tabular.Cell(row, idx))
	if err != nil {
		return 0
	}
	return n
}
