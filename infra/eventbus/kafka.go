//go:build kafka
// +build kafka

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaChannel implements eventbus.Channel on a single Kafka topic.
// Messages are keyed by user ID so one user's events stay on one partition.
type KafkaChannel struct {
	brokers []string
	topic   string
	groupID string
	buffer  int
	writer  *kafka.Writer
	logger  *slog.Logger

	mu         sync.Mutex
	subscribed bool
	closed     bool
	reader     *kafka.Reader
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewWithKafka connects to the brokers and makes sure the topic exists.
func NewWithKafka(cfg *config.Kafka, buffer int, logger *slog.Logger) (*KafkaChannel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka event bus: config is required")
	}
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka event bus: topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "payflow"
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &KafkaChannel{
		brokers: brokers,
		topic:   cfg.Topic,
		groupID: groupID,
		buffer:  buffer,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  cfg.Topic,
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Balancer:               &kafka.Hash{},
		},
		logger: logger.With("bus", "kafka", "topic", cfg.Topic),
		ctx:    ctx,
		cancel: cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := b.ensureTopic(pingCtx); err != nil {
		_ = b.Close()
		return nil, err
	}
	b.logger.Info("🚀 Kafka event bus initialized", "group_id", groupID, "brokers", brokers)
	return b, nil
}

func (b *KafkaChannel) ensureTopic(ctx context.Context) error {
	conn, err := (&kafka.Dialer{Timeout: 5 * time.Second}).DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             b.topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !isTopicAlreadyExists(err) {
		return fmt.Errorf("kafka event bus: create topic failed: %w", err)
	}
	return nil
}

// Emit implements eventbus.Channel.
func (b *KafkaChannel) Emit(ctx context.Context, msg events.Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return eventbus.ErrChannelClosed
	}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: data,
		Time:  msg.Timestamp,
	}); err != nil {
		b.logger.Error("failed to emit event", "error", err, "key", msg.Key)
		return fmt.Errorf("kafka event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", msg.Type, "key", msg.Key)
	return nil
}

// Subscribe implements eventbus.Channel.
func (b *KafkaChannel) Subscribe() (eventbus.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		return nil, eventbus.ErrAlreadySubscribed
	}
	if b.closed {
		return nil, eventbus.ErrChannelClosed
	}
	b.subscribed = true
	b.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.groupID,
		Topic:       b.topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	sub := newBrokerSubscription(b.buffer)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		sub.finish(b.consume(b.reader, sub))
	}()
	b.logger.Info("subscriber attached", "group_id", b.groupID)
	return sub, nil
}

func (b *KafkaChannel) consume(reader *kafka.Reader, sub *brokerSubscription) error {
	failures := 0
	for {
		km, err := reader.FetchMessage(b.ctx)
		if b.ctx.Err() != nil {
			return nil
		}
		if err != nil {
			failures++
			b.logger.Error("error fetching message", "error", err, "consecutive", failures)
			if failures >= maxConsecutiveReadErrors {
				return fmt.Errorf("kafka event bus: fetch failed: %w", err)
			}
			time.Sleep(time.Second)
			continue
		}
		failures = 0

		msg, err := events.Decode(km.Value)
		if err != nil {
			b.logger.Error("dropping undecodable event", "error", err, "offset", km.Offset)
		} else {
			select {
			case sub.out <- msg:
			case <-b.ctx.Done():
				return nil
			}
		}
		if err := reader.CommitMessages(b.ctx, km); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("failed to commit message", "error", err, "offset", km.Offset)
		}
	}
}

// Close implements eventbus.Channel.
func (b *KafkaChannel) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	reader := b.reader
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	var errs []error
	if reader != nil {
		errs = append(errs, reader.Close())
	}
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTopicAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Topic with this name already exists") ||
		strings.Contains(msg, "TOPIC_ALREADY_EXISTS") ||
		strings.Contains(msg, "TopicAlreadyExists")
}

var _ eventbus.Channel = (*KafkaChannel)(nil)
