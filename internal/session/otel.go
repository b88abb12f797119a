package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ripmod/rip/internal/death"
)

const instrumentationName = "github.com/ripmod/rip/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	deaths       metric.Int64Counter
	corpses      metric.Int64Counter
	materialized metric.Int64Counter
	rotted       metric.Int64Counter
	timePassed   metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)
	out.deaths, err = m.Int64Counter("rip.deaths",
		metric.WithDescription("Deaths handled, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating deaths counter: %w", err)
	}
	out.corpses, err = m.Int64Counter("rip.corpses.created",
		metric.WithDescription("Corpses stored after a survived death"))
	if err != nil {
		return nil, fmt.Errorf("creating corpses counter: %w", err)
	}
	out.materialized, err = m.Int64Counter("rip.corpses.materialized",
		metric.WithDescription("Corpses brought back into the world"))
	if err != nil {
		return nil, fmt.Errorf("creating materialized counter: %w", err)
	}
	out.rotted, err = m.Int64Counter("rip.corpses.rotted",
		metric.WithDescription("Corpses lost to rot"))
	if err != nil {
		return nil, fmt.Errorf("creating rotted counter: %w", err)
	}
	out.timePassed, err = m.Float64Histogram("rip.unconscious.hours",
		metric.WithDescription("Game hours passed while unconscious"))
	if err != nil {
		return nil, fmt.Errorf("creating time histogram: %w", err)
	}
	return &out, nil
}

func (m *metrics) recordDeath(ctx context.Context, out death.Outcome) {
	attrs := metric.WithAttributes(
		attribute.Bool("permanent", out.Permanent),
		attribute.String("reason", string(out.Reason)),
		attribute.String("respawn", out.Respawn.String()),
	)
	m.deaths.Add(ctx, 1, attrs)
	if out.CorpseSerial != 0 {
		m.corpses.Add(ctx, 1)
	}
	if !out.Permanent {
		m.timePassed.Record(ctx, out.TimePassed.Hours())
	}
}
