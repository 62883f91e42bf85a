package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stock-reconciler/internal/app"
	"stock-reconciler/internal/config"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/models"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	cliApp := &cli.App{
		Name:  "stockctl",
		Usage: "operaciones manuales sobre el resumen diario de inventario",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "override TABULAR_BACKEND", EnvVars: []string{"TABULAR_BACKEND"}},
			&cli.StringFlag{Name: "tables", Usage: "override TABLES_CONFIG_FILE", EnvVars: []string{"TABLES_CONFIG_FILE"}},
		},
		Commands: []*cli.Command{
			{
				Name:   "update-today",
				Usage:  "recalcula la ventana reciente (updateToday)",
				Action: runMode(ledger.ModeWindowed),
			},
			{
				Name:   "recalculate-all",
				Usage:  "recalcula todo el historial (recalculateAll)",
				Action: runMode(ledger.ModeFull),
			},
			{
				Name:   "init-tables",
				Usage:  "crea las tablas faltantes con su cabecera",
				Action: initTables,
			},
			{
				Name:   "show-anchor",
				Usage:  "muestra la fecha de inicio común y el punto de partida de cada producto",
				Action: showAnchor,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	if backend := c.String("backend"); backend != "" {
		os.Setenv("TABULAR_BACKEND", backend)
	}
	if tables := c.String("tables"); tables != "" {
		os.Setenv("TABLES_CONFIG_FILE", tables)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// La CLI nunca arranca el scheduler
	cfg.Scheduler.Enabled = false

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func runMode(mode ledger.Mode) cli.ActionFunc {
	return func(c *cli.Context) error {
		return withApp(c, func(ctx context.Context, a *app.App) error {
			result, err := a.Materializer.Run(ctx, mode, "cli")
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return printJSON(result)
		})
	}
}

func initTables(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		ensured, err := a.InitTables(ctx)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		for _, table := range ensured {
			fmt.Println("✅ " + table)
		}
		return nil
	})
}

func showAnchor(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		report, err := a.Materializer.InspectAnchors(ctx)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		common := models.FormatDay(report.CommonStartDate)
		if common == "" {
			common = "(none)"
		}
		fmt.Printf("Common start date: %s\n\n", common)
		fmt.Printf("%-16s %-12s %8s  %s\n", "PRODUCT", "DATE", "QTY", "SOURCE")
		for _, b := range report.Baselines {
			fmt.Printf("%-16s %-12s %8d  %s\n", b.ProductCode, models.FormatDay(b.Date), b.Quantity, b.Source)
		}
		for _, code := range report.Skipped {
			fmt.Printf("%-16s %-12s %8s  %s\n", code, "-", "-", "skipped (no start point)")
		}
		a.Logger.Debug("Anchor report printed", zap.Int("products", len(report.Baselines)))
		return nil
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
