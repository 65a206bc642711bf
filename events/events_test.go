package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaLoggerSendsStampedEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var payload map[string]interface{}
		if err := json.Unmarshal(val, &payload); err != nil {
			return err
		}
		if payload["event"] != OrderPlaced || payload["order_id"] != "o1" {
			return errors.New("unexpected payload")
		}
		if payload["timestamp"] != float64(1700000000) {
			return errors.New("missing timestamp")
		}
		return nil
	})

	logger := NewKafkaLoggerWithProducer(producer, "food_orders")
	logger.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, logger.Log(context.Background(), OrderPlaced, map[string]interface{}{"order_id": "o1"}))
	require.NoError(t, logger.Close())
}

func TestKafkaLoggerReturnsProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	logger := NewKafkaLoggerWithProducer(producer, "food_orders")
	err := logger.Log(context.Background(), MenuItemDeleted, map[string]interface{}{"menu_item_id": "m1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, logger.Close())
}

func TestMemoryLogger(t *testing.T) {
	var m MemoryLogger
	Emit(context.Background(), &m, OrderPlaced, map[string]interface{}{"order_id": "o1"})
	Emit(context.Background(), &m, OrderStatusChanged, nil)
	assert.Equal(t, []string{OrderPlaced, OrderStatusChanged}, m.Names())
}
