package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// kafkaEvent is the wire format published to the history topic.
type kafkaEvent struct {
	UserID  string    `json:"user_id"`
	Action  Action    `json:"action"`
	At      time.Time `json:"at"`
	TraceID string    `json:"trace_id,omitempty"`
}

// KafkaPublisher forwards events to downstream consumers (audit, alerting).
// It is write-only.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.CtxZapLogger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *logger.CtxZapLogger) *KafkaPublisher {
	if log == nil {
		log = logger.GetLogger("history")
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: log}
}

// NewSyncProducer dials the brokers in cfg.
func NewSyncProducer(cfg KafkaConfig) (sarama.SyncProducer, error) {
	saramaCfg, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer failed: %w", err)
	}
	return p, nil
}

func buildSaramaConfig(cfg KafkaConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version failed: %w", err)
	}
	sc.Version = version
	sc.ClientID = cfg.ClientID

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Timeout = cfg.Timeout
	sc.Producer.Retry.Max = cfg.RetryMax
	// one user's events stay ordered on one partition
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	if s := cfg.SASL; s != nil && s.Enabled {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = s.Username
		sc.Net.SASL.Password = s.Password

		switch s.Mechanism {
		case "SCRAM-SHA-256":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{hashGen: scramSHA256}
			}
		case "SCRAM-SHA-512":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{hashGen: scramSHA512}
			}
		default:
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	return sc, nil
}

func (p *KafkaPublisher) Append(ctx context.Context, userID string, action Action, at time.Time) error {
	payload, err := json.Marshal(kafkaEvent{
		UserID:  userID,
		Action:  action,
		At:      at.UTC(),
		TraceID: logger.TraceIDFromContext(ctx, ""),
	})
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(userID),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: at,
	})
	if err != nil {
		p.logger.ErrorCtx(ctx, "failed to publish history event",
			zap.String("topic", p.topic),
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("publish history event: %w", err)
	}

	p.logger.DebugCtx(ctx, "history event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close releases the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Shutdown lets the DI container close the publisher.
func (p *KafkaPublisher) Shutdown() error {
	return p.Close()
}
