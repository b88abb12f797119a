package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Swapped out by tests.
var osStdout io.Writer = os.Stdout

// Options selects the sinks of a SlogManager. Every field is optional.
type Options struct {
	// File receives text records. When nil, records go to stdout instead.
	File  io.Writer
	Level string
	// Provider bridges records into OpenTelemetry logs.
	Provider *sdklog.LoggerProvider
	// Graylog receives JSON records, typically a *gelf.Writer.
	Graylog io.Writer
	// Context adds dynamic attributes to every record.
	Context ContextProvider
}

// SlogManager owns the process logger. Setup may be called again once the
// config is read; loggers handed out earlier keep their old sinks.
type SlogManager struct {
	logger *slog.Logger
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel accepts the slog level names in any case, with optional
// offsets ("warn+2"). Anything else is info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// utcTime renders record times as UTC RFC3339 so session logs from
// different machines line up.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the logger from opts.
func (m *SlogManager) Setup(opts Options) {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level), ReplaceAttr: utcTime}

	text := opts.File
	sinks := []string{"file"}
	if text == nil {
		text = osStdout
		sinks[0] = "stdout"
	}
	handlers := []slog.Handler{slog.NewTextHandler(text, ho)}
	if opts.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.Graylog, ho))
		sinks = append(sinks, "graylog")
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("rip", otelslog.WithLoggerProvider(opts.Provider)))
		sinks = append(sinks, "otel")
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", ho.Level, "sinks", sinks)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// DialGraylog opens a UDP GELF writer to addr.
func DialGraylog(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("dialing graylog %s: %w", addr, err)
	}
	w.Facility = "rip"
	return w, nil
}
