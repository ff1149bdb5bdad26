package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/pkg/config"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleReport() *contracts.Report {
	return &contracts.Report{
		AnalysisResult: &contracts.AnalysisResult{
			Approved:        false,
			TotalOperations: 12,
			OperatedDays:    9,
			Account:         contracts.AccountConfig{AccountType: contracts.AccountMasterFunded},
			Violations: []contracts.Violation{
				{Code: contracts.CodeMinTradingDays, Severity: contracts.SeverityCritical},
				{Code: contracts.CodeNewsExposure, Severity: contracts.SeverityWarning},
			},
		},
		RequestID:   "req-1",
		GeneratedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewAnalysisCompleted(t *testing.T) {
	ev := NewAnalysisCompleted("abc", sampleReport())

	assert.Equal(t, EventAnalysisCompleted, ev.EventType)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, contracts.AccountMasterFunded, ev.AccountType)
	assert.Equal(t, 1, ev.CriticalViolations)
	assert.Equal(t, []contracts.ViolationCode{contracts.CodeMinTradingDays, contracts.CodeNewsExposure}, ev.ViolationCodes)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "withdrawal-analysis"}

	require.NoError(t, p.PublishAnalysisCompleted(context.Background(), NewAnalysisCompleted("abc", sampleReport())))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "abc", string(w.messages[0].Key))

	var decoded AnalysisCompleted
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, 12, decoded.TotalOperations)
	assert.False(t, decoded.Approved)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{writer: &fakeWriter{err: boom}}

	err := p.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{Fingerprint: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	_, isNop := New(config.KafkaConfig{Enabled: false}).(Nop)
	assert.True(t, isNop)

	pub := New(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "t"})
	producer, ok := pub.(*Producer)
	require.True(t, ok)
	assert.Equal(t, "t", producer.Topic())
	assert.NoError(t, producer.Close())

	assert.NoError(t, Nop{}.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{}))
}
