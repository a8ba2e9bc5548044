package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// Outcome values recorded on registration metrics.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeNetwork  = "network_error"
	outcomeError    = "error"
)

// InstrumentedRegistrar wraps a domain.Registrar with a span per call, a
// counter of attempts by outcome and a latency histogram.
type InstrumentedRegistrar struct {
	next     domain.Registrar
	tracer   trace.Tracer
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// Compile-time check: InstrumentedRegistrar implements domain.Registrar.
var _ domain.Registrar = (*InstrumentedRegistrar)(nil)

// NewInstrumentedRegistrar creates the decorator using the global providers.
func NewInstrumentedRegistrar(next domain.Registrar) (*InstrumentedRegistrar, error) {
	meter := otel.Meter(instrumentationName)

	attempts, err := meter.Int64Counter("signup.registrations",
		metric.WithDescription("Registration attempts sent to the backend, by outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registrations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("signup.registration.duration",
		metric.WithDescription("Latency of registration calls."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registration duration histogram: %w", err)
	}

	return &InstrumentedRegistrar{
		next:     next,
		tracer:   otel.Tracer(instrumentationName),
		attempts: attempts,
		duration: duration,
	}, nil
}

func (r *InstrumentedRegistrar) Register(ctx context.Context, req domain.RegistrationRequest) (domain.RegistrationResponse, error) {
	ctx, span := r.tracer.Start(ctx, "Registrar.Register",
		trace.WithAttributes(attribute.String("signup.role", req.Role)),
	)
	defer span.End()

	start := time.Now()
	resp, err := r.next.Register(ctx, req)
	elapsed := time.Since(start).Seconds()

	attrs := metric.WithAttributes(attribute.String("outcome", outcome(err)))
	r.attempts.Add(ctx, 1, attrs)
	r.duration.Record(ctx, elapsed, attrs)

	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		span.SetAttributes(attribute.Int("http.response.status_code", remote.StatusCode))
	}
	return resp, recordErr(span, err)
}

func outcome(err error) string {
	var remote *domain.RemoteError
	var network *domain.NetworkError
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &remote):
		return outcomeRejected
	case errors.As(err, &network):
		return outcomeNetwork
	default:
		return outcomeError
	}
}
