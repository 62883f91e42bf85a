package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"stock-reconciler/internal/config"

	"go.uber.org/zap"
)

// ServerInfo muestra información del servidor al iniciar
func ServerInfo(cfg *config.Config, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")
	port := cfg.Server.Port
	base := "http://localhost:" + port

	scheduler := "disabled"
	if cfg.Scheduler.Enabled {
		scheduler = fmt.Sprintf("daily at %02d:%02d %s", cfg.Scheduler.Hour, cfg.Scheduler.Minute, cfg.Reconcile.Timezone)
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Stock Reconciler API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + base + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("⚡ CPU Cores: " + fmt.Sprintf("%d", numCPU))
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	fmt.Println("   GET  " + greenColor + "/api/v1/inventory/latest" + resetColor + "         - Latest daily summary")
	fmt.Println("   GET  " + greenColor + "/api/v1/inventory/history/:code" + resetColor + "  - Product history")
	fmt.Println("   GET  " + greenColor + "/api/v1/inventory/discrepancies" + resetColor + "  - Discrepancy history")
	fmt.Println("   GET  " + greenColor + "/api/v1/products/managed" + resetColor + "         - Managed products")
	fmt.Println("   POST " + blueColor + "/api/v1/inventory/actions" + resetColor + "        - updateToday | recalculateAll")
	fmt.Println("   POST " + blueColor + "/api/v1/records/:kind" + resetColor + "            - Record entry")
	fmt.Println("")
	fmt.Println("🔍 " + boldColor + "Monitoring:" + resetColor)
	fmt.Println("   📈 Health Check: " + cyanColor + base + "/health" + resetColor)
	fmt.Println("   📊 Metrics: " + cyanColor + base + "/api/v1/monitoring/metrics" + resetColor)
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Tabular backend: " + cfg.Tabular.Backend)
	fmt.Println("   🔒 Run lock: " + cfg.Lock.Backend)
	fmt.Println("   ⏰ Scheduler: " + scheduler)
	fmt.Println("   📐 Policies: " + cfg.Reconcile.DiscrepancyPolicy + " / " + cfg.Reconcile.ExpirationPolicy + " / " + cfg.Reconcile.WriteStrategy)
	fmt.Println("")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.String("tabular_backend", cfg.Tabular.Backend),
		zap.String("start_time", startTime),
	)
}
