package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/redbco/redb-nosql"

// Tracer opens spans around driver operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from provider; nil uses the global provider.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer(instrumentationName)}
}

// Start opens a span named nosql.<operation>. The returned function ends it, recording
// err when non-nil.
func (t *Tracer) Start(ctx context.Context, database, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("db.system", database),
		attribute.String("db.operation", operation),
	)
	ctx, span := t.tracer.Start(ctx, "nosql."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
