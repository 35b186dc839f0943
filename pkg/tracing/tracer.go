package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	AttrMessagingSystem         = "messaging.system"
	AttrMessagingDestination    = "messaging.destination"
	AttrMessagingOperation      = "messaging.operation"
	AttrMessagingMessageID      = "messaging.message.id"
	AttrMessagingKafkaPartition = "messaging.kafka.partition"
	AttrMessagingKafkaOffset    = "messaging.kafka.offset"

	AttrNotificationLogID   = "notification.log_id"
	AttrNotificationBatchID = "notification.batch_id"
	AttrNotificationChannel = "notification.channel"
)

// Tracer wraps an OpenTelemetry tracer with span-kind helpers.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

func (t *Tracer) StartServerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.startSpan(ctx, operation, trace.SpanKindServer, attrs...)
}

func (t *Tracer) StartClientSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.startSpan(ctx, operation, trace.SpanKindClient, attrs...)
}

func (t *Tracer) StartProducerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.startSpan(ctx, operation, trace.SpanKindProducer, attrs...)
}

func (t *Tracer) StartConsumerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.startSpan(ctx, operation, trace.SpanKindConsumer, attrs...)
}

func (t *Tracer) startSpan(ctx context.Context, operation string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// RecordError records an error on the span
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (t *Tracer) AddRequestAttributes(span trace.Span, method, route string, statusCode int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

func (t *Tracer) AddMessagingAttributes(span trace.Span, system, destination, operation string) {
	span.SetAttributes(
		attribute.String(AttrMessagingSystem, system),
		attribute.String(AttrMessagingDestination, destination),
		attribute.String(AttrMessagingOperation, operation),
	)
}

func (t *Tracer) AddKafkaAttributes(span trace.Span, topic, operation string, partition int32, offset int64) {
	t.AddMessagingAttributes(span, "kafka", topic, operation)
	span.SetAttributes(
		attribute.Int64(AttrMessagingKafkaPartition, int64(partition)),
		attribute.Int64(AttrMessagingKafkaOffset, offset),
	)
}

// GetTracer returns the global tracer
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
