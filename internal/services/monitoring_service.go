package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stock-reconciler/internal/cache"
	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/tabular"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const maxRecentRuns = 50

type MonitoringService interface {
	RunRecorder
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	GetRuns() models.RunMetrics
	GetCacheStats() models.CacheMetrics
	GetSourceStats(ctx context.Context) models.SourceMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
}

type monitoringService struct {
	logger       *zap.Logger
	config       *config.Config
	redisClient  *redis.Client
	dbPool       *sql.DB
	source       tabular.Source
	summaryCache *cache.SummaryCache

	// Métricas de requests
	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError
	totalRequests int64

	// Métricas de corridas
	runsMutex sync.RWMutex
	runs      models.RunMetrics

	startTime time.Time
}

// NewMonitoringService redisClient, dbPool y summaryCache pueden ser nil
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisClient *redis.Client,
	dbPool *sql.DB,
	source tabular.Source,
	summaryCache *cache.SummaryCache,
) MonitoringService {
	return &monitoringService{
		logger:       logger,
		config:       config,
		redisClient:  redisClient,
		dbPool:       dbPool,
		source:       source,
		summaryCache: summaryCache,
		requests:     make(map[string]*models.EndpointMetrics),
		startTime:    time.Now(),
	}
}

func (s *monitoringService) RecordRequest(data models.RequestData) {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	endpointKey := fmt.Sprintf("%s %s", data.Method, data.Endpoint)

	metrics, exists := s.requests[endpointKey]
	if !exists {
		metrics = &models.EndpointMetrics{}
		s.requests[endpointKey] = metrics
	}

	metrics.Count++
	durationMs := data.Duration.Milliseconds()
	metrics.TotalTime += durationMs
	metrics.AvgTime = float64(metrics.TotalTime) / float64(metrics.Count)

	s.totalRequests++

	// Registrar request lento (> 1000ms)
	if durationMs > 1000 {
		s.slowRequests = append(s.slowRequests, models.SlowRequest{
			Endpoint:  endpointKey,
			Duration:  durationMs,
			Timestamp: data.Timestamp,
		})
		// Mantener solo los últimos 100 requests lentos
		if len(s.slowRequests) > 100 {
			s.slowRequests = s.slowRequests[1:]
		}
	}

	if data.Error != nil || data.StatusCode >= 400 {
		s.errors = append(s.errors, models.RequestError{
			Endpoint:   endpointKey,
			StatusCode: data.StatusCode,
			Timestamp:  data.Timestamp,
		})
		// Mantener solo los últimos 100 errores
		if len(s.errors) > 100 {
			s.errors = s.errors[1:]
		}
	}
}

// RecordRun guarda el resultado de una materialización
func (s *monitoringService) RecordRun(run models.RunRecord) {
	s.runsMutex.Lock()
	defer s.runsMutex.Unlock()

	s.runs.Total++
	switch {
	case run.ErrorKind == string(KindConcurrency):
		s.runs.Failed++
		s.runs.LockTimeout++
	case run.Error != "":
		s.runs.Failed++
	default:
		finished := run.StartedAt.Add(time.Duration(run.DurationMs) * time.Millisecond)
		s.runs.LastSuccess = &finished
	}

	s.runs.Recent = append(s.runs.Recent, run)
	if len(s.runs.Recent) > maxRecentRuns {
		s.runs.Recent = s.runs.Recent[1:]
	}
}

// GetRuns copia de las métricas de corridas, la más reciente primero
func (s *monitoringService) GetRuns() models.RunMetrics {
	s.runsMutex.RLock()
	defer s.runsMutex.RUnlock()

	out := s.runs
	out.Recent = make([]models.RunRecord, 0, len(s.runs.Recent))
	for i := len(s.runs.Recent) - 1; i >= 0; i-- {
		out.Recent = append(out.Recent, s.runs.Recent[i])
	}
	return out
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	requestMetrics := s.calculateRequestMetrics()
	performanceMetrics := s.calculatePerformanceMetrics()
	s.requestsMutex.RUnlock()

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Runs:        s.GetRuns(),
		Cache:       s.GetCacheStats(),
		Source:      s.GetSourceStats(ctx),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "Stock Reconciler Monitoring",
	}
}

func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	type endpointEntry struct {
		key     string
		metrics *models.EndpointMetrics
	}
	endpoints := make([]endpointEntry, 0, len(s.requests))
	for key, metrics := range s.requests {
		endpoints = append(endpoints, endpointEntry{key, metrics})
	}

	// Ordenar por count descendente
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].metrics.Count > endpoints[j].metrics.Count
	})

	var topEndpoints []models.TopEndpoint
	for i, endpoint := range endpoints {
		if i >= 10 {
			break
		}
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  endpoint.key,
			Count:     endpoint.metrics.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", endpoint.metrics.AvgTime),
		})
	}

	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, metrics := range s.requests {
		byEndpoint[key] = *metrics
	}

	return models.RequestMetrics{
		Total:             len(s.requests),
		ByEndpoint:        byEndpoint,
		SlowRequests:      append([]models.SlowRequest(nil), s.slowRequests...),
		Errors:            append([]models.RequestError(nil), s.errors...),
		TotalRequests:     int(s.totalRequests),
		SlowRequestsCount: len(s.slowRequests),
		ErrorsCount:       len(s.errors),
		TopEndpoints:      topEndpoints,
	}
}

func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var totalTime, maxTime int64
	var minTime int64 = math.MaxInt64
	var count int

	for _, metrics := range s.requests {
		totalTime += metrics.TotalTime
		if metrics.TotalTime > maxTime {
			maxTime = metrics.TotalTime
		}
		if metrics.TotalTime < minTime {
			minTime = metrics.TotalTime
		}
		count += metrics.Count
	}

	var avgTime float64
	if count > 0 {
		avgTime = float64(totalTime) / float64(count)
	}
	if minTime == math.MaxInt64 {
		minTime = 0
	}

	return models.PerformanceMetrics{
		AvgResponseTime:   avgTime,
		MaxResponseTime:   maxTime,
		MinResponseTime:   minTime,
		AvgResponseTimeMs: fmt.Sprintf("%.2fms", avgTime),
		MaxResponseTimeMs: fmt.Sprintf("%dms", maxTime),
		MinResponseTimeMs: fmt.Sprintf("%dms", minTime),
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	if s.summaryCache == nil {
		return models.CacheMetrics{Status: "disabled"}
	}
	cacheStats := s.summaryCache.GetStats()

	var hitRate float64
	if cacheStats.TotalRequests > 0 {
		hitRate = float64(cacheStats.Hits) / float64(cacheStats.TotalRequests)
	}

	return models.CacheMetrics{
		Connected:         cacheStats.L2Enabled,
		TotalKeys:         cacheStats.TotalKeys,
		HitRate:           hitRate,
		Status:            "online",
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         cacheStats.Hits,
		TotalMisses:       cacheStats.Misses,
		TotalRequests:     cacheStats.TotalRequests,
	}
}

// GetSourceStats estado del backend tabular configurado
func (s *monitoringService) GetSourceStats(ctx context.Context) models.SourceMetrics {
	metrics := models.SourceMetrics{
		Backend: s.config.Tabular.Backend,
		Status:  "online",
	}
	if s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			metrics.Status = "offline"
		}
	}
	if s.dbPool != nil {
		metrics.ActiveConnections = s.dbPool.Stats().OpenConnections
	}
	return metrics
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()

	environment := "production"
	if s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Uptime:      uptime,
		Memory: models.MemoryMetrics{
			HeapUsed:  fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
			HeapTotal: fmt.Sprintf("%.2f MB", float64(m.HeapSys)/1024/1024),
			External:  fmt.Sprintf("%.2f MB", float64(m.OtherSys)/1024/1024),
			RSS:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Goroutines:  runtime.NumGoroutine(),
		UptimeHours: fmt.Sprintf("%.2fh", uptime/3600),
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisClient == nil {
		return models.RedisMetrics{Status: "disabled"}
	}

	_, err := s.redisClient.Ping(ctx).Result()
	connected := err == nil

	var keys int
	var memory, memoryMB string

	if connected {
		if keysResult, err := s.redisClient.DBSize(ctx).Result(); err == nil {
			keys = int(keysResult)
		}

		if info, err := s.redisClient.Info(ctx, "memory").Result(); err == nil {
			for _, line := range strings.Split(info, "\n") {
				if !strings.HasPrefix(line, "used_memory:") {
					continue
				}
				memory = strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
				if memBytes, err := strconv.ParseInt(memory, 10, 64); err == nil {
					memoryMB = fmt.Sprintf("%.2f MB", float64(memBytes)/1024/1024)
				}
				break
			}
		}
	}

	status := "offline"
	if connected {
		status = "online"
	}

	return models.RedisMetrics{
		Connected: connected,
		Keys:      keys,
		Memory:    memory,
		Status:    status,
		MemoryMB:  memoryMB,
	}
}
