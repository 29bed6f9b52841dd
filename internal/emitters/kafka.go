package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"safe-monitor/internal/logger"
	"safe-monitor/internal/models"
)

// KafkaEmitter mirrors dispatched alerts to a Kafka topic so downstream
// consumers (dashboards, SIEM) get the full alert stream.
type KafkaEmitter struct {
	writer *kafka.Writer
	mu     sync.Mutex
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddress),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// EmitAlert publishes the alert keyed by its transaction hash.
func (k *KafkaEmitter) EmitAlert(alert models.AlertEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %v", err)
	}

	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(alert.SafeTxHash),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %v", err)
	}

	logger.GetLogger().Info().
		Str("network", alert.Network).
		Str("safeTxHash", alert.SafeTxHash).
		Msg("Successfully emitted alert to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
