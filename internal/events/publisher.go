package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/pkg/config"
)

// EventAnalysisCompleted is emitted once per fresh (non cached) analysis
const EventAnalysisCompleted = "ANALYSIS_COMPLETED"

// AnalysisCompleted is the verdict event consumed by downstream services
type AnalysisCompleted struct {
	EventType          string                    `json:"event_type"`
	RequestID          string                    `json:"request_id,omitempty"`
	Fingerprint        string                    `json:"fingerprint"`
	AccountType        contracts.AccountType     `json:"conta_type"`
	Approved           bool                      `json:"aprovado"`
	TotalOperations    int                       `json:"total_operacoes"`
	OperatedDays       int                       `json:"dias_operados"`
	CriticalViolations int                       `json:"violacoes_criticas"`
	ViolationCodes     []contracts.ViolationCode `json:"codigos"`
	Timestamp          time.Time                 `json:"timestamp"`
}

// NewAnalysisCompleted summarizes a report
func NewAnalysisCompleted(fingerprint string, rep *contracts.Report) AnalysisCompleted {
	codes := make([]contracts.ViolationCode, 0, len(rep.Violations))
	for _, v := range rep.Violations {
		codes = append(codes, v.Code)
	}
	return AnalysisCompleted{
		EventType:          EventAnalysisCompleted,
		RequestID:          rep.RequestID,
		Fingerprint:        fingerprint,
		AccountType:        rep.Account.AccountType,
		Approved:           rep.Approved,
		TotalOperations:    rep.TotalOperations,
		OperatedDays:       rep.OperatedDays,
		CriticalViolations: rep.CriticalCount(),
		ViolationCodes:     codes,
		Timestamp:          rep.GeneratedAt,
	}
}

// Publisher sends verdict events
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// New returns a Kafka producer when enabled, otherwise a no-op publisher
func New(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewProducer(cfg.Brokers, cfg.Topic)
}

// NewProducer creates a new Kafka producer. No connection is opened until
// the first write.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// Topic returns the destination topic
func (p *Producer) Topic() string {
	return p.topic
}

// PublishAnalysisCompleted publishes a verdict keyed by input fingerprint
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error {
	return p.publish(ctx, event.Fingerprint, event)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop drops every event
type Nop struct{}

func (Nop) PublishAnalysisCompleted(context.Context, AnalysisCompleted) error { return nil }
func (Nop) Close() error                                                    { return nil }
