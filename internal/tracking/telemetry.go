package tracking

import (
	"context"

	"backend-runcoach/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "backend-runcoach/internal/tracking"

type instruments struct {
	runsCreated     metric.Int64Counter
	transitions     metric.Int64Counter
	locations       metric.Int64Counter
	persistFailures metric.Int64Counter
}

func newInstruments(m metric.Meter) instruments {
	if m == nil {
		m = otel.Meter(meterName)
	}
	return instruments{
		runsCreated:     counter(m, "runcoach.runs.created", "Runs set up, by type."),
		transitions:     counter(m, "runcoach.runs.transitions", "Run status changes requested, by target status and outcome."),
		locations:       counter(m, "runcoach.runs.locations", "Location samples accepted."),
		persistFailures: counter(m, "runcoach.runs.persist_failures", "Stopped runs whose summary could not be saved."),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.Meter{}.Int64Counter(name)
	}
	return c
}

func (i instruments) created(ctx context.Context, typ session.Type) {
	i.runsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(typ))))
}

func (i instruments) transition(ctx context.Context, to session.Status, applied bool) {
	i.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", to.String()),
		attribute.Bool("applied", applied),
	))
}
