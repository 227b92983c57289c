package telemetry

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracerWithoutEndpointIsNoop(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracer(context.Background(), "walletscope-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := otel.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	assert.Empty(t, TraceID(ctx))
}

func headerValue(headers []kafka.Header, key string) string {
	return (&kafkaHeaders{list: headers}).Get(key)
}

func TestKafkaHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "walletscope-run-id", Value: []byte("run-1")}})
	require.Len(t, headers, 2)
	assert.Equal(t, "run-1", headerValue(headers, "WALLETSCOPE-RUN-ID"))
	assert.NotEmpty(t, headerValue(headers, "traceparent"))

	remote := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), &kafkaHeaders{list: headers}))
	require.True(t, remote.IsValid())
	assert.True(t, remote.IsRemote())
	assert.Equal(t, TraceID(ctx), remote.TraceID().String())
	assert.Equal(t, span.SpanContext().SpanID(), remote.SpanID())
}

func TestKafkaHeadersSetReplacesExisting(t *testing.T) {
	carrier := &kafkaHeaders{list: []kafka.Header{{Key: "Traceparent", Value: []byte("old")}}}
	carrier.Set("traceparent", "new")

	assert.Len(t, carrier.list, 1)
	assert.Equal(t, "new", carrier.Get("TRACEPARENT"))
	assert.Equal(t, []string{"Traceparent"}, carrier.Keys())
	assert.Empty(t, headerValue(nil, "missing"))
}
