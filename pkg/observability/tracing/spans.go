// Package tracing provides OpenTelemetry span helpers for store operations.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dynabridge/dynabridge"

// StartStoreSpan creates a client span for a database store operation.
// Attributes follow the OpenTelemetry database semantic conventions.
func StartStoreSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)

	spanName := fmt.Sprintf("dynamodb.%s", operation)
	if table != "" {
		spanName = fmt.Sprintf("dynamodb.%s %s", operation, table)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
	)
	return ctx, span
}

// RecordError marks the span failed and records the error event.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as completed successfully.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
