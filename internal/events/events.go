// Package events publishes collection events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/simp-lee/gamelib/internal/domain"
)

// DefaultQueue receives an EntryAdded message for every game added to a collection.
const DefaultQueue = "collection.entry_added"

// EntryAdded is the payload published after a successful add.
type EntryAdded struct {
	UserID   string    `json:"user_id"`
	EntryID  uint      `json:"entry_id"`
	GameID   int       `json:"game_id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Platform string    `json:"platform"`
	Status   string    `json:"status"`
	AddedAt  time.Time `json:"added_at"`
}

// NewEntryAdded builds the event for a stored entry.
func NewEntryAdded(e *domain.CollectionEntry) EntryAdded {
	return EntryAdded{
		UserID:   e.UserID,
		EntryID:  e.ID,
		GameID:   e.GameID,
		Name:     e.Name,
		Slug:     e.Slug,
		Platform: e.Platform,
		Status:   e.Status,
		AddedAt:  e.CreatedAt.UTC(),
	}
}

// Publisher delivers collection events.
type Publisher interface {
	PublishEntryAdded(ctx context.Context, event EntryAdded) error
	Close() error
}

// NopPublisher drops every event. It is used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEntryAdded(context.Context, EntryAdded) error { return nil }
func (NopPublisher) Close() error                                        { return nil }

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

func dialAMQP(url string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// AMQPPublisher publishes persistent JSON messages to a durable queue through
// the default exchange. The connection is opened on first use and reopened
// after a failed publish.
type AMQPPublisher struct {
	url   string
	queue string
	dial  dialFunc
	log   *slog.Logger

	mu   sync.Mutex
	ch   channel
	conn io.Closer
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher creates a publisher for url. An empty queue means DefaultQueue.
func NewAMQPPublisher(url, queue string, log *slog.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{url: url, queue: queue, dial: dialAMQP, log: log}
}

// PublishEntryAdded implements Publisher.
func (p *AMQPPublisher) PublishEntryAdded(ctx context.Context, event EntryAdded) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         p.queue,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", p.queue, err)
	}
	p.log.DebugContext(ctx, "event published", slog.String("queue", p.queue), slog.String("user_id", event.UserID))
	return nil
}

func (p *AMQPPublisher) connectLocked() error {
	if p.ch != nil {
		return nil
	}
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
