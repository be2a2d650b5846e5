package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

// AMQPBroker fans envelopes out through a fanout exchange. Each process binds
// its own exclusive, auto-deleted queue.
type AMQPBroker struct {
	conn     *amqp.Connection
	exchange string
	logg     *logger.Logger

	mu      sync.Mutex
	publish *amqp.Channel
}

func NewAMQPBroker(url, exchange string, logg *logger.Logger) (*AMQPBroker, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url required")
	}
	if exchange == "" {
		return nil, fmt.Errorf("amqp exchange required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open amqp channel: %w", err), conn.Close())
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, multierr.Combine(fmt.Errorf("declare exchange %s: %w", exchange, err), ch.Close(), conn.Close())
	}
	return &AMQPBroker{conn: conn, exchange: exchange, logg: logg, publish: ch}, nil
}

func (b *AMQPBroker) Publish(ctx context.Context, env Envelope) error {
	body, err := encodeWire(env)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publish == nil {
		return fmt.Errorf("amqp broker closed")
	}
	return b.publish.PublishWithContext(ctx,
		b.exchange,
		"",    // fanout ignores the routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (b *AMQPBroker) Run(ctx context.Context, deliver func(Envelope)) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp consume channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare relay queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind relay queue: %w", err)
	}
	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume relay queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			env, err := decodeWire(d.Body)
			if err != nil {
				b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "relay.amqp.decode_failed")
				continue
			}
			deliver(env)
		}
	}
}

func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.publish != nil {
		err = multierr.Append(err, b.publish.Close())
		b.publish = nil
	}
	if b.conn != nil && !b.conn.IsClosed() {
		err = multierr.Append(err, b.conn.Close())
	}
	return err
}
