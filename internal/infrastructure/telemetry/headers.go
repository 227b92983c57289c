package telemetry

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// kafkaHeaders adapts a message's header list to the propagation carrier API.
// Keys compare case-insensitively.
type kafkaHeaders struct {
	list []kafka.Header
}

var _ propagation.TextMapCarrier = (*kafkaHeaders)(nil)

func (h *kafkaHeaders) Get(key string) string {
	if i := h.index(key); i >= 0 {
		return string(h.list[i].Value)
	}
	return ""
}

func (h *kafkaHeaders) Set(key, value string) {
	if i := h.index(key); i >= 0 {
		h.list[i].Value = []byte(value)
		return
	}
	h.list = append(h.list, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *kafkaHeaders) Keys() []string {
	keys := make([]string, len(h.list))
	for i, header := range h.list {
		keys[i] = header.Key
	}
	return keys
}

func (h *kafkaHeaders) index(key string) int {
	for i, header := range h.list {
		if strings.EqualFold(header.Key, key) {
			return i
		}
	}
	return -1
}

// InjectKafkaHeaders returns headers extended with the trace context of ctx.
func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &kafkaHeaders{list: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.list
}
