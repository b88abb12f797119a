package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), Config{LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("test"))
}

func TestNew_NoExporter(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, ServiceName: "rip"})
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{
		Enabled:        true,
		ServiceName:    "rip",
		BatchTimeout:   time.Second,
		LogWriter:      &buf,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec otellog.Record
	rec.SetBody(otellog.StringValue("corpse materialized"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	deaths, err := p.Meter("test").Int64Counter("rip.test.deaths")
	require.NoError(t, err)
	deaths.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "corpse materialized")
	assert.Contains(t, out, "rip.test.deaths")
	require.NoError(t, p.Shutdown(context.Background()))
}
