package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-reconciler/internal/cache"
	"stock-reconciler/internal/config"
	"stock-reconciler/internal/database"
	"stock-reconciler/internal/handlers"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/lock"
	"stock-reconciler/internal/middleware"
	"stock-reconciler/internal/reconcile"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/routes"
	"stock-reconciler/internal/scheduler"
	"stock-reconciler/internal/services"
	"stock-reconciler/internal/tabular"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const summaryCacheTTL = 5 * time.Minute

// App componentes del servicio conectados según la configuración
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Source   tabular.Source
	Postgres *database.PostgresDB
	Redis    *database.RedisDB
	Cache    *cache.SummaryCache
	Lock     lock.RunLock

	Materializer services.Materializer
	Inventory    services.InventoryService
	Records      services.RecordService
	Monitoring   services.MonitoringService

	closers []func()
}

// NewLogger nivel según LOG_LEVEL; GIN_MODE=debug usa el encoder de desarrollo
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Server.GinMode == "debug" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

// New abre las conexiones y arma los servicios. Con LOCK_BACKEND=redis, Redis es obligatorio.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.openSource(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		redisDB, err := database.NewRedisDB(cfg.Redis, logger)
		switch {
		case err == nil:
			a.Redis = redisDB
			a.closers = append(a.closers, func() { redisDB.Close() })
		case cfg.Lock.Backend == config.LockRedis:
			a.Close()
			return nil, fmt.Errorf("redis is required by the run lock: %w", err)
		default:
			logger.Warn("⚠️ Redis no disponible, caché solo en memoria", zap.Error(err))
		}
	}

	redisClient := a.redisClient()
	if cfg.Lock.Backend == config.LockRedis {
		if redisClient == nil {
			a.Close()
			return nil, fmt.Errorf("LOCK_BACKEND=%s requires REDIS_ENABLED=true", config.LockRedis)
		}
		a.Lock = lock.NewRedisLock(redisClient, cfg.Lock.Key, cfg.Lock.TTL, logger)
	} else {
		a.Lock = lock.NewLocalLock()
	}

	a.Cache = cache.NewSummaryCache(redisClient, summaryCacheTTL, logger)
	a.closers = append(a.closers, a.Cache.Close)

	discrepancy, err := reconcile.NewDiscrepancyPolicy(cfg.Reconcile.DiscrepancyPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	expiration, err := reconcile.NewExpirationPolicy(cfg.Reconcile.ExpirationPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := cfg.Reconcile.Location()
	products := repository.NewProductRepository(a.Source, cfg.Tables.Products, logger)
	summary := repository.NewSummaryRepository(a.Source, cfg.Tables.Summary, loc, logger)
	staging := repository.NewLedgerRepository(a.Source, cfg.Tables.Ledger)

	a.Monitoring = services.NewMonitoringService(logger, cfg, redisClient, a.dbPool(), a.Source, a.Cache)

	a.Materializer = services.NewMaterializer(cfg.Reconcile, cfg.Lock.Wait, services.MaterializerDeps{
		Products: products,
		Summary:  summary,
		Builder:  ledger.NewBuilder(a.Source, cfg.Tables, loc, staging, logger),
		Engine: reconcile.NewEngine(reconcile.Options{
			CommonAnchorDepth:   cfg.Reconcile.CommonAnchorDepth,
			AnchorMinStocktakes: cfg.Reconcile.AnchorMinStocktakes,
			Discrepancy:         discrepancy,
			Expiration:          expiration,
		}, logger),
		Lock:     a.Lock,
		Cache:    a.Cache,
		Recorder: a.Monitoring,
	}, logger)
	a.Inventory = services.NewInventoryService(summary, products, a.Cache, loc, logger)
	a.Records = services.NewRecordService(repository.NewRecordRepository(a.Source), cfg.Tables, products, a.Lock, cfg.Lock.Wait, loc, logger)

	logger.Info("✅ Servicios inicializados",
		zap.String("tabular_backend", cfg.Tabular.Backend),
		zap.String("lock_backend", cfg.Lock.Backend),
		zap.Bool("redis", a.Redis != nil),
	)
	return a, nil
}

func (a *App) openSource(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Tabular.Backend {
	case config.BackendMemory:
		a.Source = tabular.NewMemorySource()
	case config.BackendExcel:
		src, err := tabular.NewExcelSource(cfg.Tabular.ExcelDir, a.Logger)
		if err != nil {
			return err
		}
		a.Source = src
	case config.BackendPostgres:
		pg, err := database.NewPostgresDB(cfg.Database, a.Logger)
		if err != nil {
			return err
		}
		a.Postgres = pg
		a.closers = append(a.closers, func() { pg.Close() })
		src, err := tabular.NewPostgresSource(pg.DB, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { src.Close() })
		a.Source = src
	case config.BackendSheets:
		src, err := tabular.NewSheetsSource(ctx, cfg.Tabular.GoogleCredentialsFile, cfg.Tabular.DefaultSourceID, a.Logger)
		if err != nil {
			return err
		}
		a.Source = src
	default:
		return fmt.Errorf("unknown tabular backend %q", cfg.Tabular.Backend)
	}
	return nil
}

func (a *App) redisClient() *redis.Client {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Client
}

func (a *App) dbPool() *sql.DB {
	if a.Postgres == nil {
		return nil
	}
	return a.Postgres.DB
}

// Router engine HTTP con todas las rutas
func (a *App) Router() *gin.Engine {
	logger := a.Logger
	return routes.NewRouter(routes.Handlers{
		Inventory:  handlers.NewInventoryHandler(a.Inventory, a.Materializer, logger),
		Records:    handlers.NewRecordHandler(a.Records, logger),
		Monitoring: handlers.NewMonitoringHandler(a.Monitoring, logger),
		Health:     middleware.NewHealthChecker(a.Source, a.Config.Tabular.Backend, a.Postgres, a.Redis, logger),
	}, a.Config.Server.CORSOrigins, logger)
}

// Scheduler actualización por ventana diaria
func (a *App) Scheduler() *scheduler.Daily {
	cfg := a.Config
	return scheduler.NewDaily(cfg.Scheduler.Hour, cfg.Scheduler.Minute, cfg.Reconcile.Location(), func(ctx context.Context) error {
		_, err := a.Materializer.Run(ctx, ledger.ModeWindowed, "scheduler")
		return err
	}, a.Logger)
}

// InitTables crea las tablas que falten con su cabecera configurada; las existentes no se tocan
func (a *App) InitTables(ctx context.Context) ([]string, error) {
	creator, ok := a.Source.(tabular.TableCreator)
	if !ok {
		return nil, fmt.Errorf("tabular backend %q cannot create tables", a.Config.Tabular.Backend)
	}

	t := a.Config.Tables
	tables := []struct {
		ref    config.TableRef
		header []string
	}{
		{t.Products.TableRef, t.Products.Header()},
		{t.Deliveries.TableRef, t.Deliveries.Header()},
		{t.Sales.TableRef, t.Sales.Header()},
		{t.Recoveries.TableRef, t.Recoveries.Header()},
		{t.Stocktakes.TableRef, t.Stocktakes.Header()},
		{t.Ledger.TableRef, t.Ledger.Columns},
		{t.Summary.TableRef, t.Summary.Columns},
	}

	var ensured []string
	for _, table := range tables {
		if err := creator.CreateTable(ctx, table.ref.SourceID, table.ref.Name, table.header); err != nil {
			return ensured, fmt.Errorf("failed to create %s: %w", table.ref, err)
		}
		ensured = append(ensured, table.ref.String())
		a.Logger.Info("✅ Tabla lista", zap.String("table", table.ref.String()))
	}
	return ensured, nil
}

// Close libera las conexiones en orden inverso
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
