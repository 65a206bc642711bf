// Package events writes an audit trail of domain events (orders placed,
// status changes, menu edits) to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shopify/sarama"
)

const (
	OrderPlaced          = "order_placed"
	OrderStatusChanged   = "order_status_changed"
	PaymentStatusChanged = "payment_status_changed"
	MenuItemCreated      = "menu_item_created"
	MenuItemUpdated      = "menu_item_updated"
	MenuItemDeleted      = "menu_item_deleted"
	MenuItemToggled      = "menu_item_toggled"
)

type Logger interface {
	Log(ctx context.Context, event string, fields map[string]interface{}) error
}

type KafkaLogger struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

func NewKafkaLogger(brokers []string, topic string) (*KafkaLogger, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 5
	kafkaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaLoggerWithProducer(producer, topic), nil
}

func NewKafkaLoggerWithProducer(producer sarama.SyncProducer, topic string) *KafkaLogger {
	return &KafkaLogger{producer: producer, topic: topic, now: time.Now}
}

// Log sends one event keyed by its order or menu item id so a single
// entity's history lands on one partition.
func (l *KafkaLogger) Log(_ context.Context, event string, fields map[string]interface{}) error {
	payload := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["event"] = event
	payload["timestamp"] = l.now().Unix()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Value: sarama.ByteEncoder(data),
	}
	if key := entityKey(fields); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	_, _, err = l.producer.SendMessage(msg)
	return err
}

func (l *KafkaLogger) Close() error {
	return l.producer.Close()
}

func entityKey(fields map[string]interface{}) string {
	for _, k := range []string{"order_id", "menu_item_id"} {
		if v, ok := fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type NopLogger struct{}

func (NopLogger) Log(context.Context, string, map[string]interface{}) error { return nil }

// MemoryLogger records events; used where no broker is available.
type MemoryLogger struct {
	mu     sync.Mutex
	Events []map[string]interface{}
}

func (m *MemoryLogger) Log(_ context.Context, event string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := map[string]interface{}{"event": event}
	for k, v := range fields {
		entry[k] = v
	}
	m.Events = append(m.Events, entry)
	return nil
}

func (m *MemoryLogger) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i], _ = e["event"].(string)
	}
	return names
}

// Emit logs through l and only reports failures; the audit trail never
// blocks the write it describes.
func Emit(ctx context.Context, l Logger, event string, fields map[string]interface{}) {
	if err := l.Log(ctx, event, fields); err != nil {
		log.Printf("Failed to log %s event: %v", event, err)
	}
}
