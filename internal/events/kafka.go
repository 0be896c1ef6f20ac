package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"touchline/internal/market"
)

// TransferEvent is the message published for every completed transfer.
type TransferEvent struct {
	Type     string                `json:"type"`
	Transfer market.TransferRecord `json:"transfer"`
	Fee      string                `json:"fee"`
	Wage     string                `json:"wage"`
}

// KafkaPublisher publishes completed transfers keyed by player ID, so one
// player's moves stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_0_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: producer, topic: topic, log: logger}
}

// RecordTransfer implements market.HistorySink.
func (k *KafkaPublisher) RecordTransfer(ctx context.Context, rec market.TransferRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := k.message(rec)
	if err != nil {
		return err
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish transfer %s: %w", rec.ID, err)
	}
	k.log.Debug("transfer published", "transfer_id", rec.ID, "partition", partition, "offset", offset)
	return nil
}

func (k *KafkaPublisher) message(rec market.TransferRecord) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(TransferEvent{
		Type:     "transfer.completed",
		Transfer: rec,
		Fee:      market.FormatMillions(rec.FeeMicros),
		Wage:     market.FormatMillions(rec.WageMicros),
	})
	if err != nil {
		return nil, fmt.Errorf("encode transfer %s: %w", rec.ID, err)
	}
	return &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(rec.PlayerID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(rec.Kind)},
		},
	}, nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
