// AngelaMos | 2026
// publisher.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/usergate/internal/user"
)

const (
	exchangeKind      = "topic"
	publishTimeout    = 5 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// ErrNotConnected is returned by Publish while the broker connection is
// being re-established.
var ErrNotConnected = errors.New("rabbitmq not connected")

type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// session is one live connection and channel. closed fires once when either
// of them goes away.
type session struct {
	ch     channel
	closed <-chan *amqp.Error
	close  func() error
}

type dialFunc func() (*session, error)

// Publisher emits user lifecycle events to a topic exchange. The event type
// is the routing key, so consumers can bind to "user.*" or a single kind.
// A lost connection is redialed in the background with exponential backoff;
// publishes fail fast with ErrNotConnected until it is back.
type Publisher struct {
	mu       sync.Mutex
	sess     *session
	dial     dialFunc
	exchange string
	logger   *slog.Logger
	policy   func() backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	return newPublisher(func() (*session, error) {
		return dialSession(url, exchange)
	}, exchange, logger, reconnectPolicy)
}

func newPublisher(
	dial dialFunc,
	exchange string,
	logger *slog.Logger,
	policy func() backoff.BackOff,
) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sess, err := dial()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		sess:     sess,
		dial:     dial,
		exchange: exchange,
		logger:   logger,
		policy:   policy,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.watch(sess)

	return p, nil
}

func reconnectPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxReconnectDelay
	b.MaxElapsedTime = 0
	return b
}

func dialSession(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	closed := make(chan *amqp.Error, 1)
	go func() {
		select {
		case err := <-connClosed:
			closed <- err
		case err := <-chClosed:
			closed <- err
		}
	}()

	return &session{
		ch:     ch,
		closed: closed,
		close: func() error {
			_ = ch.Close()
			return conn.Close()
		},
	}, nil
}

// watch waits for sess to drop and then redials until it succeeds or the
// publisher is closed.
func (p *Publisher) watch(sess *session) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		var reason *amqp.Error
		select {
		case <-p.ctx.Done():
			return
		case reason = <-sess.closed:
		}

		p.mu.Lock()
		if p.sess == sess {
			p.sess = nil
		}
		p.mu.Unlock()
		_ = sess.close()

		if p.ctx.Err() != nil {
			return
		}
		p.logger.Warn("rabbitmq connection lost, reconnecting", "error", reason)
		p.reconnect()
	}()
}

func (p *Publisher) reconnect() {
	err := backoff.RetryNotify(func() error {
		sess, err := p.dial()
		if err != nil {
			return err
		}

		p.mu.Lock()
		if p.ctx.Err() != nil {
			p.mu.Unlock()
			_ = sess.close()
			return backoff.Permanent(p.ctx.Err())
		}
		p.sess = sess
		p.mu.Unlock()

		p.watch(sess)
		return nil
	}, backoff.WithContext(p.policy(), p.ctx), func(err error, wait time.Duration) {
		p.logger.Warn("rabbitmq reconnect failed",
			"error", err,
			"retry_in", wait,
		)
	})
	if err == nil {
		p.logger.Info("rabbitmq reconnected", "exchange", p.exchange)
	}
}

func (p *Publisher) Publish(ctx context.Context, event user.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		return fmt.Errorf("publish %s: %w", event.Type, ErrNotConnected)
	}

	err = p.sess.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	return nil
}

// Close stops any reconnect in progress and closes the live session.
func (p *Publisher) Close() error {
	p.cancel()

	p.mu.Lock()
	sess := p.sess
	p.sess = nil
	p.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.close()
	}
	p.wg.Wait()
	return err
}

var _ user.EventPublisher = (*Publisher)(nil)
