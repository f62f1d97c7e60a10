// Package kafka publishes user notifications to a Kafka topic so other
// devices of the same user (or an audit consumer) can pick them up.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"communityhub/notify"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Config struct {
	Address     string `mapstructure:"address"`
	NotifyTopic string `mapstructure:"notifyTopic"`
}

func (c Config) Enabled() bool {
	return c.Address != "" && c.NotifyTopic != ""
}

// messageWriter is the subset of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Notifier struct {
	writer messageWriter
	log    *zap.Logger
}

// NewNotifier writes asynchronously: notifications are raised on the
// rollback path of a request and must not wait for the broker.
func NewNotifier(cfg Config, log *zap.Logger) *Notifier {
	w := kafka.NewWriter(writerConfig(cfg))
	w.Completion = func(msgs []kafka.Message, err error) {
		if err != nil {
			log.Warn("failed to send notification to kafka", zap.Int("messages", len(msgs)), zap.Error(err))
		}
	}
	return &Notifier{writer: w, log: log}
}

func writerConfig(cfg Config) kafka.WriterConfig {
	return kafka.WriterConfig{
		Brokers:      []string{cfg.Address},
		Topic:        cfg.NotifyTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
}

// EncodeMessage keys the notification by its cache key so all events about
// one entity land on the same partition.
func EncodeMessage(n notify.Notification) (kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(n.Key), Value: value}, nil
}

// Notify never fails the caller; delivery errors are logged.
func (k *Notifier) Notify(ctx context.Context, n notify.Notification) {
	msg, err := EncodeMessage(n)
	if err != nil {
		k.log.Error("encode notification", zap.Error(err))
		return
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.Warn("failed to send notification to kafka", zap.String("key", n.Key), zap.Error(err))
	}
}

func (k *Notifier) Close() error {
	return k.writer.Close()
}

// EnsureTopic creates the notification topic through the cluster controller.
func EnsureTopic(cfg Config) error {
	conn, err := kafka.Dial("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("dial kafka %s: %w", cfg.Address, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find kafka controller: %w", err)
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	return controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.NotifyTopic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
