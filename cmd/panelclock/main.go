package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/livinlefevreloca/panelclock/internal/app"
	"github.com/livinlefevreloca/panelclock/internal/config"
	"github.com/livinlefevreloca/panelclock/internal/db"
	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/device/host"
	"github.com/livinlefevreloca/panelclock/internal/device/sim"
	"github.com/livinlefevreloca/panelclock/internal/device/web"
	"github.com/livinlefevreloca/panelclock/internal/display"
	"github.com/livinlefevreloca/panelclock/internal/logging"
	"github.com/livinlefevreloca/panelclock/internal/stats"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file (TOML)")
	report := flag.Duration("report", 0, "Print the run statistics ledger for this window and exit")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := logging.Bootstrap(logging.DefaultConfig())

	logger.Infow("loading configuration", "config_file", *configFile)
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	if *report > 0 {
		if err := printReport(cfg.Ledger.Database, *report); err != nil {
			logger.Fatalw("failed to print report", "error", err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatalw("invalid configuration", "error", err)
	}

	configured, err := logging.New(cfg.Logging)
	if err != nil {
		logger.Fatalw("failed to build logger", "error", err)
	}
	logger = configured
	defer logger.Sync()

	logger.Infow("starting panelclock",
		"source", cfg.Device.Source,
		"location", cfg.Weather.Query.Location,
		"ledger", cfg.Ledger.Stats.Enabled)

	devices, err := buildDevices(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to set up devices", "error", err)
	}

	panel := display.NewTerminal(os.Stdout)
	a, err := app.New(cfg, devices, panel, logger)
	if err != nil {
		logger.Fatalw("failed to build panel", "error", err)
	}
	defer a.Close()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Errorw("panel stopped with error", "error", err)
	}

	logger.Infow("shutting down gracefully", "queue", a.QueueStats())
	fmt.Println(panel.Render())
}

func buildDevices(cfg *config.Config, logger *zap.SugaredLogger) (app.Devices, error) {
	loc, err := cfg.Device.Location()
	if err != nil {
		return app.Devices{}, err
	}

	devices := app.Devices{
		RTC:         host.NewRTC(loc),
		NetworkTime: web.NewNetworkTime(cfg.Device.NetworkTimeURL, cfg.Device.NetworkTimeout, loc),
		Fetcher:     web.NewFetcher(cfg.Weather.Fetch, logger.Named("fetch")),
	}

	switch cfg.Device.Source {
	case device.SourceSim:
		devices.WiFi = &sim.WiFi{SSID: cfg.Device.SSID, BSSID: "02:00:00:00:00:01"}
		devices.Sensor = sim.NewSensor()
	default:
		devices.WiFi = host.NewWiFi(cfg.Device.WiFiInterface, cfg.Device.SSID)
		devices.Sensor = host.NewSensor(cfg.Device.TemperatureSensor, cfg.Device.HumidityPath, cfg.Device.MeasurementDelay)
	}

	return devices, nil
}

func printReport(dbConfig db.Config, window time.Duration) error {
	ledger, err := db.OpenWithConfig(dbConfig)
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ledger.Migrate(ctx); err != nil {
		return err
	}

	end := time.Now()
	rows, err := ledger.ListJobStats(ctx, end.Add(-window), end)
	if err != nil {
		return err
	}

	table, err := stats.RenderReport(stats.Summarize(rows))
	if err != nil {
		return err
	}
	fmt.Printf("run statistics since %s\n", end.Add(-window).Format(time.RFC3339))
	fmt.Println(table)
	return nil
}
