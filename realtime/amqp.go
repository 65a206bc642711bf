package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

const (
	dialAttempts   = 5
	reconnectDelay = 5 * time.Second
)

// AMQPRelay spreads change events across server instances. Events are
// published to a fanout exchange; every instance consumes its own exclusive
// queue bound to it and dispatches into its local hub. While the broker is
// unreachable events are dispatched to the local hub only.
type AMQPRelay struct {
	url      string
	exchange string
	hub      *Hub

	mu         sync.Mutex
	conn       *amqp.Connection
	pubCh      *amqp.Channel
	deliveries <-chan amqp.Delivery
	live       bool
	closed     bool
}

// DialAMQPRelay connects and binds this instance's queue before returning,
// so events published from here on reach the local hub through the broker.
func DialAMQPRelay(url, exchange string, hub *Hub) (*AMQPRelay, error) {
	r := &AMQPRelay{url: url, exchange: exchange, hub: hub}

	var err error
	for i := 0; i < dialAttempts; i++ {
		log.Printf("Attempting to connect to RabbitMQ (attempt %d/%d)...", i+1, dialAttempts)
		if err = r.connect(); err == nil {
			return r, nil
		}
		if i < dialAttempts-1 {
			log.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(reconnectDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", dialAttempts, err)
}

// connect dials, declares the exchange and binds a fresh exclusive queue.
func (r *AMQPRelay) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(pubCh, r.exchange); err != nil {
		conn.Close()
		return err
	}

	subCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	q, err := subCh.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := subCh.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := subCh.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("consume: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		conn.Close()
		return errRelayClosed
	}
	r.conn, r.pubCh, r.deliveries, r.live = conn, pubCh, deliveries, true
	return nil
}

var errRelayClosed = errors.New("relay closed")

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publish sends e through the exchange. When the relay is down, or the
// broker refuses the message, e goes straight to the local hub instead.
func (r *AMQPRelay) Publish(_ context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !r.live {
		r.mu.Unlock()
		r.hub.Dispatch(e)
		return nil
	}
	err = r.pubCh.Publish(
		r.exchange, // exchange
		"",         // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   e.CommittedAt,
			Body:        body,
		},
	)
	if err != nil {
		r.live = false
	}
	r.mu.Unlock()

	if err != nil {
		log.Printf("Failed to publish %s %s event, delivering locally: %v", e.Table, e.Type, err)
		r.hub.Dispatch(e)
	}
	return nil
}

// Run consumes the instance queue until ctx is done, reconnecting whenever
// the broker drops the connection.
func (r *AMQPRelay) Run(ctx context.Context) error {
	for {
		r.mu.Lock()
		deliveries := r.deliveries
		r.mu.Unlock()

		if err := r.consume(ctx, deliveries); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		r.markDown()
		log.Printf("Change relay lost RabbitMQ, delivering locally until it is back")
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
			err := r.connect()
			if err == nil {
				log.Printf("Change relay reconnected to RabbitMQ")
				break
			}
			if errors.Is(err, errRelayClosed) {
				return nil
			}
			log.Printf("Failed to reconnect to RabbitMQ: %v", err)
		}
	}
}

// consume dispatches deliveries until ctx is done or the channel closes.
func (r *AMQPRelay) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	if deliveries == nil {
		return errRelayClosed
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal(msg.Body, &e); err != nil {
				log.Printf("Failed to parse change event: %v", err)
				continue
			}
			r.hub.Dispatch(e)
		}
	}
}

func (r *AMQPRelay) markDown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = false
	if r.conn != nil {
		r.conn.Close()
	}
}

// Live reports whether events currently travel through the broker.
func (r *AMQPRelay) Live() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.live = false
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
