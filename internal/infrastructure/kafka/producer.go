package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"walletscope/internal/domain"
	"walletscope/internal/infrastructure/telemetry"
	"walletscope/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runIDHeader carries the run id next to the trace context.
const runIDHeader = "walletscope-run-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	prefix string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           500 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, cfg.TopicPrefix), nil
}

func newProducer(writer messageWriter, prefix string) *Producer {
	if strings.TrimSpace(prefix) == "" {
		prefix = "walletscope-chains"
	}
	return &Producer{writer: writer, prefix: prefix}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consume publishes one message per chain record of the report.
func (p *Producer) Consume(ctx context.Context, report domain.Report) error {
	return p.PublishChainRecords(ctx, report)
}

// PublishChainRecords writes every chain record to its chain topic, keyed by
// the analyzed address.
func (p *Producer) PublishChainRecords(ctx context.Context, report domain.Report) error {
	if len(report.Chains) == 0 {
		return nil
	}
	tracer := otel.Tracer("walletscope/kafka")
	messages := make([]kafka.Message, 0, len(report.Chains))
	spans := make([]trace.Span, 0, len(report.Chains))
	for _, record := range report.Chains {
		traceCtx, span := tracer.Start(ctx, "publish.chain_record", trace.WithSpanKind(trace.SpanKindProducer))
		span.SetAttributes(
			attribute.String("run.id", report.RunID),
			attribute.String("chain.id", record.Chain),
			attribute.Int("actions", len(record.Actions)),
		)

		payload, err := streaming.Encode(streaming.Message{
			Type:      streaming.MessageTypeChainRecord,
			RunID:     report.RunID,
			Address:   report.Profile.Address,
			Chain:     record.Chain,
			TraceID:   telemetry.TraceID(traceCtx),
			CreatedAt: report.CreatedAt,
			Record:    record,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			endAll(spans, err)
			return err
		}
		headers := telemetry.InjectKafkaHeaders(traceCtx, []kafka.Header{
			{Key: runIDHeader, Value: []byte(report.RunID)},
		})
		messages = append(messages, kafka.Message{
			Topic:   p.topicForChain(record.Chain),
			Key:     []byte(report.Profile.Address),
			Value:   payload,
			Headers: headers,
		})
		spans = append(spans, span)
	}
	err := p.writer.WriteMessages(ctx, messages...)
	endAll(spans, err)
	return err
}

func endAll(spans []trace.Span, err error) {
	for _, span := range spans {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (p *Producer) topicForChain(chainID string) string {
	return p.prefix + "-" + chainID
}
