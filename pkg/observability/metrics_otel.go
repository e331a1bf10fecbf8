package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName identifies this module's tracers and meters
const InstrumentationName = "github.com/platinummonkey/taskforge"

// OTelInstruments holds OpenTelemetry metric instruments for the auth
// pipeline. A nil *OTelInstruments records nothing.
type OTelInstruments struct {
	decisions       metric.Int64Counter
	resolveDuration metric.Float64Histogram
}

// NewOTelInstruments creates instruments on the global meter provider
func NewOTelInstruments() (*OTelInstruments, error) {
	return NewOTelInstrumentsFrom(otel.Meter(InstrumentationName))
}

// NewOTelInstrumentsFrom creates instruments on meter
func NewOTelInstrumentsFrom(meter metric.Meter) (*OTelInstruments, error) {
	decisions, err := meter.Int64Counter(
		"taskforge.auth.decisions",
		metric.WithDescription("Authentication and authorization decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth decisions counter: %w", err)
	}

	resolveDuration, err := meter.Float64Histogram(
		"taskforge.membership.resolve.duration",
		metric.WithDescription("Principal resolution duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve duration histogram: %w", err)
	}

	return &OTelInstruments{decisions: decisions, resolveDuration: resolveDuration}, nil
}

func (o *OTelInstruments) recordDecision(ctx context.Context, stage, decision, reason string) {
	if o == nil {
		return
	}
	o.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("auth.stage", stage),
		attribute.String("auth.decision", decision),
		attribute.String("auth.reason", reason),
	))
}

func (o *OTelInstruments) recordResolve(ctx context.Context, result string, d time.Duration) {
	if o == nil {
		return
	}
	o.resolveDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("result", result)))
}
