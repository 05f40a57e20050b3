// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"agent-chat-go/internal/config"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/log"
)

// Producer publishes chat events to a single topic, keyed by chat id so
// that events of one chat stay ordered within a partition.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		// WriteMessages only enqueues; delivery errors arrive in Completion
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warnw("failed to deliver chat events", "count", len(messages), "error", err)
			}
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Publish implements events.Publisher.
func (p *Producer) Publish(ctx context.Context, event events.ChatEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ChatID), 10)),
		Value: value,
	})
}

// Close flushes pending writes and releases the connection.
func (p *Producer) Close() error {
	return p.writer.Close()
}
