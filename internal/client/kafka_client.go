package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

// KafkaProducer publishes domain events. The service runs degraded
// without a broker, so construction failures are treated as warnings by
// the factory.
type KafkaProducer struct {
	Writer *kafka.Writer
	cfg    *config.KafkaConfig
}

func NewKafkaProducer(cfg *config.Config, logger *zap.Logger) (*KafkaProducer, error) {
	kafkaCfg := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaCfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				util.Error("Kafka write failed",
					zap.Error(err),
					zap.Int("message_count", len(messages)))
			}
		},
	}

	p := &KafkaProducer{Writer: writer, cfg: &kafkaCfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.HealthCheck(ctx); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to reach Kafka brokers: %w", err)
	}

	util.Info("Kafka producer connected", zap.Strings("brokers", kafkaCfg.Brokers))
	return p, nil
}

// ProduceMessage writes one message with optional headers.
func (p *KafkaProducer) ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	msg := kafka.Message{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	util.Debug("Kafka message produced",
		zap.String("topic", topic),
		zap.Int("value_size", len(value)))
	return nil
}

// HealthCheck dials the first broker and lists partitions.
func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	if len(p.cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	dialer := &kafka.Dialer{Timeout: 5 * time.Second, DualStack: true}
	conn, err := dialer.DialContext(ctx, "tcp", p.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read kafka partitions: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	if p.Writer == nil {
		return nil
	}
	if err := p.Writer.Close(); err != nil {
		util.Error("Failed to close Kafka producer", zap.Error(err))
		return err
	}
	util.Info("Kafka producer closed")
	return nil
}
