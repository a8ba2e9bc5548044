package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

const instrumentationName = "github.com/neomorfeo/fleetsignup/internal/adapter/otel"

// TracingRepository wraps a domain.SessionRepository with OpenTelemetry tracing.
// Spans carry the session ID and state, never form values.
type TracingRepository struct {
	next   domain.SessionRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.SessionRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, session domain.Session) error {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.Create",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.state", string(session.State)),
		),
	)
	defer span.End()

	return recordErr(span, r.next.Create(ctx, session))
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.GetByID",
		trace.WithAttributes(attribute.String("session.id", id)),
	)
	defer span.End()

	session, err := r.next.GetByID(ctx, id)
	return session, recordErr(span, err)
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Session, error) {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.State != nil {
		span.SetAttributes(attribute.String("filter.state", string(*filter.State)))
	}

	sessions, err := r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(sessions)))
	}
	return sessions, recordErr(span, err)
}

func (r *TracingRepository) Update(ctx context.Context, session domain.Session) error {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.Update",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.state", string(session.State)),
			attribute.Int("session.error_count", len(session.Errors)),
		),
	)
	defer span.End()

	return recordErr(span, r.next.Update(ctx, session))
}

func (r *TracingRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.Delete",
		trace.WithAttributes(attribute.String("session.id", id)),
	)
	defer span.End()

	return recordErr(span, r.next.Delete(ctx, id))
}

func (r *TracingRepository) DeleteStale(ctx context.Context, before time.Time) (int, error) {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.DeleteStale",
		trace.WithAttributes(attribute.String("cutoff", before.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	n, err := r.next.DeleteStale(ctx, before)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", n))
	}
	return n, recordErr(span, err)
}

// recordErr marks the span failed when err is non-nil and returns err unchanged.
func recordErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
