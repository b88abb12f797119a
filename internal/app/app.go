// Package app assembles the death subsystem for a host process: config,
// logging, telemetry, storage, the session and its command surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/dispatcher"
	"github.com/ripmod/rip/internal/geo"
	"github.com/ripmod/rip/internal/handlers"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/internal/influx"
	"github.com/ripmod/rip/internal/logging"
	"github.com/ripmod/rip/internal/monitor"
	intOtel "github.com/ripmod/rip/internal/otel"
	"github.com/ripmod/rip/internal/session"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/internal/storage/factory"
	"github.com/ripmod/rip/pkg/hostapi"
)

// Name prefixes log files and identifies the service.
const Name = "rip"

// Options configures Start.
type Options struct {
	Engine    host.Engine
	ConfigDir string
	Version   string
	// Watch re-applies settings whenever the config file changes.
	Watch bool
}

// App is one running instance. Tick must be called from the host's main
// thread every frame; Call may be called from any goroutine.
type App struct {
	Session *session.Session
	API     *hostapi.API
	Logger  *slog.Logger

	slog       *logging.SlogManager
	attrs      logging.AttrSource
	otel       *intOtel.Provider
	influx     *influx.Manager
	backend    storage.Backend
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
	closers    []io.Closer
}

// Start loads config from opts.ConfigDir and wires every component. Only
// session construction errors are fatal; optional sinks that fail to start
// are logged and skipped.
func Start(ctx context.Context, opts Options) (*App, error) {
	a := &App{slog: logging.NewSlogManager()}
	a.slog.Setup(logging.Options{Level: "info"})
	a.Logger = a.slog.Logger()

	configLoaded := true
	if err := config.Load(opts.ConfigDir); err != nil {
		configLoaded = false
		a.Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logFile := a.openLogFile()
	a.startOtel(ctx, logFile)
	graylog := a.dialGraylog()

	var fileW io.Writer
	if logFile != nil {
		fileW = logFile
	}
	a.slog.Setup(logging.Options{
		File:     fileW,
		Level:    viper.GetString("logLevel"),
		Provider: a.otel.LoggerProvider(),
		Graylog:  graylog,
		Context:  a.attrs.Provide,
	})
	a.Logger = a.slog.Logger()

	zw := fileW
	if zw == nil {
		zw = os.Stdout
	}
	zlog := logging.NewZerolog(zerolog.MultiLevelWriter(zw), viper.GetString("logLevel"))

	settings, err := config.GetSettings()
	if err != nil {
		a.Logger.Warn("Invalid settings, using defaults for bad values", "error", err)
	}

	eng := opts.Engine
	if eng.Travel == nil {
		eng.Travel = geo.PixelTimer{MinutesPerPixel: settings.Death.MinutesPerPixel}
	}
	if eng.Roller == nil {
		eng.Roller = host.NewDice(uint64(time.Now().UnixNano()))
	}

	var telem session.Telemetry
	if viper.GetBool("influx.enabled") {
		m := influx.NewManager(zlog.With().Str("component", "influx").Logger(),
			filepath.Join(viper.GetString("logsDir"), Name+"_influx_backup.lp.gz"))
		if err := m.Connect(ctx); err != nil {
			a.Logger.Error("Failed to start InfluxDB telemetry", "error", err)
		} else {
			a.influx = m
			telem = m
		}
	}

	a.Session, err = session.New(session.Dependencies{
		Engine:    eng,
		Settings:  settings,
		Telemetry: telem,
		Logger:    a.Logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("creating session: %w", err)
	}
	a.attrs.Bind(a.Session.LogAttrs)

	storageCfg := config.GetStorageConfig()
	backend := factory.New(storageCfg, zlog)
	if err := backend.Init(); err != nil {
		a.Logger.Error("Failed to initialize storage, saving is disabled", "type", storageCfg.Type, "error", err)
	} else {
		a.backend = backend
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	handlers.NewService(handlers.Dependencies{
		Session: a.Session,
		Backend: a.backend,
		Profile: storageCfg.Profile,
		Flush:   a.Flush,
		Logger:  a.Logger.With("component", "handlers"),
	}).Register(a.dispatcher)
	a.API = hostapi.New(a.dispatcher, opts.Version)

	if viper.GetBool("monitor.enabled") {
		a.monitor = monitor.NewService(monitor.Dependencies{
			Session:  a.Session,
			Dir:      viper.GetString("logsDir"),
			Interval: viper.GetDuration("monitor.interval"),
			Logger:   a.Logger.With("component", "monitor"),
		})
		a.monitor.Start()
	}

	if opts.Watch && configLoaded {
		config.Watch(func(s config.Settings, err error) {
			if err != nil {
				a.Logger.Warn("Reloaded settings contain invalid values", "error", err)
			}
			a.Session.Post(func() { a.Session.ApplySettings(s) })
		})
	}

	a.Logger.Info("Started", "version", opts.Version, "storage", storageCfg.Type, "commands", a.dispatcher.Commands())
	return a, nil
}

func (a *App) openLogFile() *os.File {
	dir := viper.GetString("logsDir")
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.Logger.Error("Failed to create logs directory", "error", err, "path", dir)
		return nil
	}
	path := logging.LogFilePath(dir, Name, time.Now())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		a.Logger.Error("Failed to create/open log file!", "error", err, "path", path)
		return nil
	}
	a.closers = append(a.closers, f)
	return f
}

func (a *App) startOtel(ctx context.Context, logFile *os.File) {
	cfg := intOtel.Config{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
	if logFile != nil {
		cfg.LogWriter = logFile
	}
	p, err := intOtel.New(ctx, cfg)
	if err != nil {
		a.Logger.Error("Failed to initialize OTel provider", "error", err)
		p, _ = intOtel.New(ctx, intOtel.Config{})
	}
	a.otel = p
}

func (a *App) dialGraylog() io.Writer {
	if !viper.GetBool("graylog.enabled") {
		return nil
	}
	w, err := logging.DialGraylog(viper.GetString("graylog.address"))
	if err != nil {
		a.Logger.Error("Failed to connect to Graylog", "error", err)
		return nil
	}
	a.closers = append(a.closers, w)
	return w
}

// Tick advances the session. Call once per host frame.
func (a *App) Tick() { a.Session.Tick() }

// Call runs a host command.
func (a *App) Call(command string, args ...string) string {
	return a.API.Call(command, args...)
}

// Backend returns the storage backend, or nil when it failed to start.
func (a *App) Backend() storage.Backend { return a.backend }

// Flush pushes buffered logs and telemetry.
func (a *App) Flush(ctx context.Context) error {
	if a.influx != nil && a.influx.Writer != nil {
		a.influx.Writer.Flush()
	}
	return a.otel.Flush(ctx)
}

// Close stops every component. Call it after the last Tick; queued
// commands still waiting for the session fail with session.ErrClosed.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Session != nil {
		a.Session.Close()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	a.attrs.Bind(nil)
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
	}
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
