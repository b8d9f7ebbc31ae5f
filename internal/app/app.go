// Package app assembles the panel: the dispatch substrate, the job table with
// its five jobs, and the optional run statistics ledger.
package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/livinlefevreloca/panelclock/internal/config"
	"github.com/livinlefevreloca/panelclock/internal/db"
	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/dispatch"
	"github.com/livinlefevreloca/panelclock/internal/inbox"
	"github.com/livinlefevreloca/panelclock/internal/jobs"
	"github.com/livinlefevreloca/panelclock/internal/scheduler"
	"github.com/livinlefevreloca/panelclock/internal/stats"
)

// Devices are the collaborators the job bodies read from
type Devices struct {
	RTC         device.RTC
	NetworkTime device.NetworkTime
	WiFi        device.WiFi
	Sensor      device.Sensor
	Fetcher     device.Fetcher
}

func (d Devices) validate() error {
	switch {
	case d.RTC == nil:
		return errors.New("app: rtc is required")
	case d.NetworkTime == nil:
		return errors.New("app: network time source is required")
	case d.WiFi == nil:
		return errors.New("app: wifi is required")
	case d.Sensor == nil:
		return errors.New("app: sensor is required")
	case d.Fetcher == nil:
		return errors.New("app: fetcher is required")
	}
	return nil
}

// Bodies holds the five job bodies so their snapshots can be inspected
type Bodies struct {
	TimeSync       *jobs.TimeSync
	WiFiStatus     *jobs.WiFiStatus
	ClockDisplay   *jobs.ClockDisplay
	IndoorSensor   *jobs.IndoorSensor
	OutdoorWeather *jobs.OutdoorWeather
}

// App owns every long-running part of the panel
type App struct {
	config *config.Config
	logger *zap.SugaredLogger

	substrate *dispatch.Substrate
	scheduler *scheduler.Scheduler
	bodies    Bodies

	// nil unless the ledger is enabled
	ledger    *db.DB
	collector *stats.Collector
}

// New builds the panel and registers its jobs. Nothing runs until Run.
func New(cfg *config.Config, devices Devices, display device.Display, logger *zap.SugaredLogger) (*App, error) {
	if err := devices.validate(); err != nil {
		return nil, err
	}
	if display == nil {
		return nil, errors.New("app: display is required")
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		substrate: dispatch.New(cfg.Dispatch, logger.Named("dispatch")),
	}

	var opts []scheduler.Option
	if cfg.Ledger.Stats.Enabled {
		ledger, err := db.OpenWithConfig(cfg.Ledger.Database)
		if err != nil {
			return nil, errors.Wrap(err, "open ledger")
		}
		a.ledger = ledger
		a.collector = stats.NewCollector(cfg.Ledger.Stats, stats.NewDBAdapter(ledger), logger.Named("stats"))
		opts = append(opts, scheduler.WithStatsSink(a.collector))
	}
	a.scheduler = scheduler.NewScheduler(a.substrate, logger.Named("scheduler"), opts...)

	jobLogger := logger.Named("jobs")
	a.bodies = Bodies{
		TimeSync:       jobs.NewTimeSync(devices.NetworkTime, devices.RTC, jobLogger.With("job", scheduler.TimeSync.String())),
		WiFiStatus:     jobs.NewWiFiStatus(devices.WiFi, display, jobLogger.With("job", scheduler.WiFiStatus.String())),
		ClockDisplay:   jobs.NewClockDisplay(devices.RTC, display, jobLogger.With("job", scheduler.ClockDisplay.String())),
		IndoorSensor:   jobs.NewIndoorSensor(devices.Sensor, display, jobLogger.With("job", scheduler.IndoorSensor.String())),
		OutdoorWeather: jobs.NewOutdoorWeather(devices.Fetcher, cfg.Weather.Query.URL(), cfg.Weather.ShowCity, display, jobLogger.With("job", scheduler.OutdoorWeather.String())),
	}

	for _, job := range a.jobTable() {
		if err := a.scheduler.Register(job); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// jobTable binds each body to its period, dispatch mode and recurrence
func (a *App) jobTable() []scheduler.Job {
	periods := a.config.Scheduler
	return []scheduler.Job{
		{
			Kind:        scheduler.TimeSync,
			Period:      periods.TimeSyncInitialDelay.Duration(),
			Mode:        dispatch.Deferred,
			Recurrence:  scheduler.OneShotReschedule,
			Body:        a.bodies.TimeSync,
			Rescheduler: periods.RetrySchedule(),
		},
		{
			Kind:       scheduler.WiFiStatus,
			Period:     periods.WiFiStatus.Duration(),
			Mode:       dispatch.Deferred,
			Recurrence: scheduler.Periodic,
			Body:       a.bodies.WiFiStatus,
		},
		{
			// Display only, cheap enough to run in the expiry context
			Kind:       scheduler.ClockDisplay,
			Period:     periods.ClockDisplay.Duration(),
			Mode:       dispatch.Inline,
			Recurrence: scheduler.Periodic,
			Body:       a.bodies.ClockDisplay,
		},
		{
			Kind:       scheduler.IndoorSensor,
			Period:     periods.IndoorSensor.Duration(),
			Mode:       dispatch.Deferred,
			Recurrence: scheduler.Periodic,
			Body:       a.bodies.IndoorSensor,
		},
		{
			Kind:       scheduler.OutdoorWeather,
			Period:     periods.OutdoorWeather.Duration(),
			Mode:       dispatch.Deferred,
			Recurrence: scheduler.Periodic,
			Body:       a.bodies.OutdoorWeather,
		},
	}
}

// Run starts the worker, the timer loop and the stats collector, arms every
// job and performs the immediate pass. It blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.ledger != nil {
		if err := a.ledger.Migrate(ctx); err != nil {
			return errors.Wrap(err, "migrate ledger")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.substrate.Run(gctx) })
	g.Go(func() error { return a.scheduler.Run(gctx) })
	if a.collector != nil {
		g.Go(func() error { return a.collector.Run(gctx) })
	}

	if err := a.scheduler.StartAll(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return errors.Wrap(err, "start jobs")
	}
	a.logger.Infow("panel running", "jobs", len(scheduler.Kinds()), "ledger", a.ledger != nil)

	return g.Wait()
}

// Close releases the ledger. Call it after Run returns.
func (a *App) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

// Scheduler returns the job table
func (a *App) Scheduler() *scheduler.Scheduler { return a.scheduler }

// Bodies returns the registered job bodies
func (a *App) Bodies() Bodies { return a.bodies }

// Ledger returns the run statistics database, or nil if disabled
func (a *App) Ledger() *db.DB { return a.ledger }

// QueueStats reports the deferred work queue counters
func (a *App) QueueStats() inbox.Stats { return a.substrate.QueueStats() }
