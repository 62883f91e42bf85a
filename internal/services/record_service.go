package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/lock"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/tabular"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordService agrega entregas, ventas, retiros e inventarios a las tablas fuente
type RecordService interface {
	Add(ctx context.Context, kind string, req *models.RecordRequest) (*models.RecordResponse, error)
}

type recordService struct {
	repo     repository.RecordRepository
	tables   config.TablesConfig
	products repository.ProductRepository
	lock     lock.RunLock
	lockWait time.Duration
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func NewRecordService(repo repository.RecordRepository, tables config.TablesConfig, products repository.ProductRepository, runLock lock.RunLock, lockWait time.Duration, loc *time.Location, logger *zap.Logger) RecordService {
	return &recordService{
		repo:     repo,
		tables:   tables,
		products: products,
		lock:     runLock,
		lockWait: lockWait,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Add valida el registro y lo agrega bajo el mismo lock que la materialización
func (s *recordService) Add(ctx context.Context, rawKind string, req *models.RecordRequest) (*models.RecordResponse, error) {
	logger := s.logger.With(
		zap.String("operation", "add_record"),
		zap.String("kind", rawKind),
		zap.String("product_code", req.ProductCode),
	)

	kind, ok := models.ParseTransactionKind(rawKind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, rawKind)
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be zero or positive", ErrInvalidRecord)
	}
	code := strings.TrimSpace(req.ProductCode)
	if code == "" {
		return nil, fmt.Errorf("%w: product code is required", ErrInvalidRecord)
	}
	date, err := tabular.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrInvalidRecord, req.Date)
	}
	var expiration *time.Time
	if req.ExpirationDate != "" {
		exp, err := tabular.ParseDate(req.ExpirationDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: expiration date %q", ErrInvalidRecord, req.ExpirationDate)
		}
		expiration = &exp
	}
	if kind == models.KindDelivery && expiration == nil {
		return nil, fmt.Errorf("%w: deliveries require an expiration date", ErrInvalidRecord)
	}

	if s.products != nil {
		products, err := s.products.GetProducts(ctx)
		if err != nil {
			return nil, classify("add_record", "product master", err)
		}
		known := false
		for _, p := range products {
			if p.Code == code {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidRecord, code)
		}
	}

	release, err := s.lock.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, &RunError{Kind: KindConcurrency, Op: "add_record", Err: err}
		}
		return nil, &RunError{Kind: KindSource, Op: "add_record", Err: err}
	}
	defer release()

	id := uuid.NewString()
	recordedAt := s.now().In(s.loc)
	ref, values := s.layout(kind, id, recordedAt, date, code, *req.Quantity, expiration, req.HandlerCode)

	if err := s.repo.Append(ctx, ref, values); err != nil {
		logger.Error("❌ Error agregando registro", zap.Error(err))
		return nil, classify("add_record", ref.String(), err)
	}

	logger.Info("✅ Registro agregado",
		zap.String("id", id),
		zap.String("table", ref.String()),
		zap.Int("quantity", *req.Quantity),
	)

	return &models.RecordResponse{
		ID:          id,
		Kind:        string(kind),
		Table:       ref.String(),
		ProductCode: code,
		Date:        models.FormatDay(date),
		Quantity:    *req.Quantity,
		RecordedAt:  recordedAt,
	}, nil
}

// layout arma los valores por nombre de columna según la tabla configurada; columnas vacías se omiten
func (s *recordService) layout(kind models.TransactionKind, id string, recordedAt, date time.Time, code string, qty int, expiration *time.Time, handler string) (config.TableRef, map[string]string) {
	values := make(map[string]string)
	put := func(column, value string) {
		if column != "" {
			values[column] = value
		}
	}

	if kind == models.KindStocktake {
		t := s.tables.Stocktakes
		put(t.IDColumn, id)
		put(t.RecordedAtColumn, recordedAt.Format(time.RFC3339))
		put(t.DateColumn, models.FormatDay(date))
		put(t.CodeColumn, code)
		put(t.CountColumn, strconv.Itoa(qty))
		if handler != "" {
			put(t.HandlerColumn, handler)
		}
		return t.TableRef, values
	}

	var t config.MovementTable
	switch kind {
	case models.KindDelivery:
		t = s.tables.Deliveries
	case models.KindSale:
		t = s.tables.Sales
	default:
		t = s.tables.Recoveries
	}
	put(t.IDColumn, id)
	put(t.RecordedAtColumn, recordedAt.Format(time.RFC3339))
	put(t.DateColumn, models.FormatDay(date))
	put(t.CodeColumn, code)
	put(t.QuantityColumn, strconv.Itoa(qty))
	if expiration != nil {
		put(t.ExpirationColumn, tabular.FormatDate(expiration))
	}
	return t.TableRef, values
}
