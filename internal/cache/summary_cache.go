package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"stock-reconciler/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	keyPrefix   = "summary:"
	keyRows     = keyPrefix + "rows"
	keyProducts = keyPrefix + "products"
)

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
	L2Enabled     bool
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// SummaryCache caché de dos niveles para las consultas sobre el resumen materializado.
// Se invalida completo después de cada materialización exitosa.
type SummaryCache struct {
	// L1 Cache: Memoria local (más rápido)
	l1Cache map[string]entry
	l1Mutex sync.RWMutex

	// L2 Cache: Redis (compartido entre instancias); puede ser nil
	redisClient *redis.Client

	ttl    time.Duration
	logger *zap.Logger

	// Estadísticas
	statsMutex sync.RWMutex
	hits       int64
	misses     int64

	stop chan struct{}
	once sync.Once
}

// NewSummaryCache crea el caché; redisClient nil deja solo el nivel en memoria
func NewSummaryCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	sc := &SummaryCache{
		l1Cache:     make(map[string]entry),
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
		stop:        make(chan struct{}),
	}

	// Iniciar limpieza periódica del L1 cache
	go sc.cleanupL1Cache()

	return sc
}

// Close detiene la limpieza periódica
func (sc *SummaryCache) Close() {
	sc.once.Do(func() { close(sc.stop) })
}

// GetStats retorna estadísticas del caché
func (sc *SummaryCache) GetStats() CacheStats {
	sc.statsMutex.RLock()
	defer sc.statsMutex.RUnlock()

	sc.l1Mutex.RLock()
	totalKeys := len(sc.l1Cache)
	sc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          sc.hits,
		Misses:        sc.misses,
		TotalRequests: sc.hits + sc.misses,
		TotalKeys:     totalKeys,
		L2Enabled:     sc.redisClient != nil,
	}
}

// GetRows retorna las filas del resumen si están en caché
func (sc *SummaryCache) GetRows(ctx context.Context) ([]models.DailySummaryRow, bool) {
	var rows []models.DailySummaryRow
	if !sc.get(ctx, keyRows, &rows) {
		return nil, false
	}
	return rows, true
}

// SetRows guarda las filas del resumen en ambos niveles
func (sc *SummaryCache) SetRows(ctx context.Context, rows []models.DailySummaryRow) {
	sc.set(ctx, keyRows, rows)
}

// GetProducts retorna el maestro de productos si está en caché
func (sc *SummaryCache) GetProducts(ctx context.Context) ([]models.Product, bool) {
	var products []models.Product
	if !sc.get(ctx, keyProducts, &products) {
		return nil, false
	}
	return products, true
}

// SetProducts guarda el maestro de productos en ambos niveles
func (sc *SummaryCache) SetProducts(ctx context.Context, products []models.Product) {
	sc.set(ctx, keyProducts, products)
}

// InvalidateAll vacía ambos niveles
func (sc *SummaryCache) InvalidateAll(ctx context.Context) error {
	// 1. L1 Cache
	sc.l1Mutex.Lock()
	sc.l1Cache = make(map[string]entry)
	sc.l1Mutex.Unlock()

	// 2. L2 Cache
	if sc.redisClient == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := sc.redisClient.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := sc.redisClient.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sc.logger.Debug("Summary cache invalidated")
	return nil
}

func (sc *SummaryCache) get(ctx context.Context, key string, out interface{}) bool {
	start := time.Now()

	// 1. L1 Cache (Memoria local)
	if data, ok := sc.getFromL1(key); ok {
		if err := json.Unmarshal(data, out); err == nil {
			sc.recordHit()
			sc.logger.Debug("L1 cache hit", zap.String("key", key), zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	// 2. L2 Cache (Redis)
	if data, err := sc.getFromL2(ctx, key); err == nil {
		if err := json.Unmarshal(data, out); err == nil {
			sc.setToL1(key, data)
			sc.recordHit()
			sc.logger.Debug("L2 cache hit", zap.String("key", key), zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	sc.recordMiss()
	return false
}

func (sc *SummaryCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		sc.logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	sc.setToL1(key, data)
	if sc.redisClient != nil {
		if err := sc.redisClient.Set(ctx, key, data, sc.ttl).Err(); err != nil {
			sc.logger.Warn("Failed to write L2 cache", zap.String("key", key), zap.Error(err))
		}
	}
}

// recordHit registra un hit en el caché
func (sc *SummaryCache) recordHit() {
	sc.statsMutex.Lock()
	sc.hits++
	sc.statsMutex.Unlock()
}

// recordMiss registra un miss en el caché
func (sc *SummaryCache) recordMiss() {
	sc.statsMutex.Lock()
	sc.misses++
	sc.statsMutex.Unlock()
}

func (sc *SummaryCache) getFromL1(key string) ([]byte, bool) {
	sc.l1Mutex.RLock()
	defer sc.l1Mutex.RUnlock()
	e, ok := sc.l1Cache[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (sc *SummaryCache) setToL1(key string, data []byte) {
	sc.l1Mutex.Lock()
	defer sc.l1Mutex.Unlock()
	sc.l1Cache[key] = entry{data: data, expiresAt: time.Now().Add(sc.ttl)}
}

func (sc *SummaryCache) getFromL2(ctx context.Context, key string) ([]byte, error) {
	if sc.redisClient == nil {
		return nil, redis.Nil
	}
	return sc.redisClient.Get(ctx, key).Bytes()
}

// cleanupL1Cache elimina entradas vencidas periódicamente
func (sc *SummaryCache) cleanupL1Cache() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sc.stop:
			return
		case now := <-ticker.C:
			sc.l1Mutex.Lock()
			for key, e := range sc.l1Cache {
				if now.After(e.expiresAt) {
					delete(sc.l1Cache, key)
				}
			}
			items := len(sc.l1Cache)
			sc.l1Mutex.Unlock()
			sc.logger.Debug("L1 cache cleanup", zap.Int("items", items))
		}
	}
}
