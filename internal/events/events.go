// Package events publishes stored price samples to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"pricewatch/internal/model"
)

const (
	DefaultTopic = "price-samples"

	_batchTimeout = 5 * time.Millisecond
)

type Config struct {
	Brokers        []string `mapstructure:"brokers" json:"brokers"`
	Topic          string   `mapstructure:"topic" json:"topic"`
	MaxAttempts    int      `mapstructure:"max_attempts" json:"max_attempts"`
	WriteTimeoutMs int      `mapstructure:"write_timeout_ms" json:"write_timeout_ms"`
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// Writer is the subset of *kafka.Writer the publisher needs.
//
//go:generate mockgen -package=events_test -destination=mock_writer_test.go -source=events.go Writer
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SampleRecorded is the payload of one message.
type SampleRecorded struct {
	Token        string    `json:"token"`
	InstrumentID string    `json:"instrumentId"`
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	SampledAt    time.Time `json:"sampledAt"`
}

type Publisher struct {
	w     Writer
	topic string
	log   *slog.Logger
}

// NewPublisher wraps w. An empty topic means DefaultTopic.
func NewPublisher(w Writer, topic string, log *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{w: w, topic: topic, log: log}
}

// NewKafkaPublisher builds a kafka-go writer from cfg.
func NewKafkaPublisher(cfg Config, log *slog.Logger) *Publisher {
	timeout := time.Duration(cfg.WriteTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// PublishSample writes one message at a time from the paced loop, so each
	// write flushes at once instead of waiting out kafka-go's 1s batch window.
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           timeout,
		BatchSize:              1,
		BatchTimeout:           _batchTimeout,
	}
	return NewPublisher(w, cfg.Topic, log)
}

// PublishSample sends one SampleRecorded keyed by symbol.
func (p *Publisher) PublishSample(ctx context.Context, token string, in model.Instrument, s model.PriceSample) error {
	ev := SampleRecorded{
		Token:        token,
		InstrumentID: in.ID,
		Symbol:       in.Symbol,
		Price:        s.Price,
		SampledAt:    s.CreatedAt,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sample event: %w", err)
	}
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(in.Symbol),
		Value: data,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sample event to %s: %w", p.topic, err)
	}
	p.log.Debug("sample event published", "topic", p.topic, "symbol", in.Symbol, "token", token)
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
