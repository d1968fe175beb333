package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Topology names the exchange and queues shared by the API and the worker.
// Each queue is bound to the exchange with its own name as routing key.
type Topology struct {
	Exchange        string
	EstimationQueue string
	StatusQueue     string
	DLQ             string
}

func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{t.EstimationQueue, t.DLQ, t.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	for _, q := range []string{t.EstimationQueue, t.StatusQueue} {
		if err := ch.QueueBind(q, q, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// Dial connects to the broker, retrying with exponential backoff until timeout.
func Dial(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = timeout

	var conn *amqp.Connection
	err := backoff.RetryNotify(
		func() error {
			c, err := amqp.Dial(url)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		backoff.WithContext(eb, ctx),
		func(err error, next time.Duration) {
			logger.Warn("rabbitmq not ready, retrying", zap.Error(err), zap.Duration("next", next))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

// DeclareTopology opens a short-lived channel on conn and declares t.
func DeclareTopology(conn *amqp.Connection, t Topology) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	return t.Declare(ch)
}
