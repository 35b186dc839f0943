package tracing

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.TraceContext{}

// InjectTraceContext appends the trace context of ctx to Kafka record headers.
// The input slice is not modified.
func InjectTraceContext(ctx context.Context, headers []sarama.RecordHeader) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)

	newHeaders := make([]sarama.RecordHeader, len(headers), len(headers)+len(carrier))
	copy(newHeaders, headers)
	for k, v := range carrier {
		newHeaders = append(newHeaders, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}
	return newHeaders
}

// ExtractTraceContext restores a trace context carried in consumed record headers.
func ExtractTraceContext(ctx context.Context, headers []*sarama.RecordHeader) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		if h != nil {
			carrier[string(h.Key)] = string(h.Value)
		}
	}
	return propagator.Extract(ctx, carrier)
}

// InjectMetadata writes the trace context into a string map such as
// in-process message metadata.
func InjectMetadata(ctx context.Context, md map[string]string) {
	propagator.Inject(ctx, propagation.MapCarrier(md))
}

func ExtractMetadata(ctx context.Context, md map[string]string) context.Context {
	return propagator.Extract(ctx, propagation.MapCarrier(md))
}
