package di

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"gorm.io/gorm"

	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// History is the audit pipeline shared by the services and the gateway.
// Writes land in the database synchronously; the optional Kafka sink runs
// behind the async pool when enabled.
type History struct {
	store *history.GormLog
	multi *history.Multi
	async *history.AsyncLog
	kafka *history.KafkaPublisher
}

// NewHistory dials Kafka when history.kafka.enabled is set.
func NewHistory(db *gorm.DB, cfg history.Config, log *logger.CtxZapLogger) (*History, error) {
	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		p, err := history.NewSyncProducer(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		producer = p
	}
	return newHistory(db, cfg, producer, log)
}

func newHistory(db *gorm.DB, cfg history.Config, producer sarama.SyncProducer, log *logger.CtxZapLogger) (*History, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &History{store: history.NewGormLog(db, log)}

	var sinks []history.Appender
	if producer != nil {
		h.kafka = history.NewKafkaPublisher(producer, cfg.Kafka.Topic, log)
		var sink history.Appender = h.kafka
		if cfg.Async.Enabled {
			async, err := history.NewAsyncLog(h.kafka, cfg.Async, log)
			if err != nil {
				_ = h.kafka.Close()
				return nil, err
			}
			h.async = async
			sink = async
		}
		sinks = append(sinks, sink)
	}

	h.multi = history.NewMulti(h.store, log, sinks...)
	return h, nil
}

func (h *History) Append(ctx context.Context, userID string, action history.Action, at time.Time) error {
	return h.multi.Append(ctx, userID, action, at)
}

func (h *History) List(ctx context.Context, userID string, page, pageSize int) ([]history.Event, int64, error) {
	return h.multi.List(ctx, userID, page, pageSize)
}

// Store is the database log, used for retention pruning.
func (h *History) Store() *history.GormLog {
	return h.store
}

// Flush waits for queued Kafka publishes.
func (h *History) Flush(ctx context.Context) error {
	if h.async == nil {
		return nil
	}
	return h.async.Flush(ctx)
}

// Shutdown drains the pool before closing the producer.
func (h *History) Shutdown() error {
	var errs []error
	if h.async != nil {
		errs = append(errs, h.async.Close())
	}
	if h.kafka != nil {
		errs = append(errs, h.kafka.Close())
	}
	return errors.Join(errs...)
}
