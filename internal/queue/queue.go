package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names
const (
	FileJobQueueName = "gradery.filejobs"
	ResultQueueName  = "gradery.results"
)

const maxReconnectAttempts = 10

// FileJob is a submitted file handed to an external grading worker.
type FileJob struct {
	ID          uuid.UUID `json:"id"`
	CourseKey   string    `json:"course_key"`
	ExerciseKey string    `json:"exercise_key"`
	FieldName   string    `json:"field_name"`
	UserID      string    `json:"user_id"`
	Lang        string    `json:"lang"`
	FileRef     string    `json:"file_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileResult is the outcome an external worker reports for a file job.
type FileResult struct {
	JobID       uuid.UUID `json:"job_id"`
	Status      string    `json:"status"` // completed, failed, timeout
	Points      int       `json:"points"`
	MaxPoints   int       `json:"max_points"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Connection is a RabbitMQ connection that redials itself with backoff
// when the broker drops it.
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials the broker and declares the grading queues.
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	// File jobs stay queued across broker restarts; a ten minute TTL
	// bounds the backlog if every worker is down. Results are transient.
	if err := declareQueue(ch, FileJobQueueName, 10*time.Minute); err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	if err := declareQueue(ch, ResultQueueName, time.Minute); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch
	go c.redialOnClose(conn)

	slog.Info("connected to rabbitmq", "url", sanitizeURL(c.url))
	return nil
}

func declareQueue(ch *amqp.Channel, name string, ttl time.Duration) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-message-ttl": int32(ttl.Milliseconds())},
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// redialOnClose waits for the broker to drop conn and dials again with
// exponential backoff capped at 30 seconds.
func (c *Connection) redialOnClose(conn *amqp.Connection) {
	err := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if err == nil {
		return // clean shutdown
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	slog.Warn("rabbitmq connection lost", "error", err, "reconnects", c.reconnects)

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		c.reconnects++
		backoff := min(time.Duration(1<<(attempt-1))*time.Second, 30*time.Second)
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			slog.Error("rabbitmq redial failed", "error", err, "attempt", attempt)
			continue
		}
		slog.Info("rabbitmq reconnected", "attempts", attempt)
		return
	}
	slog.Error("giving up on rabbitmq reconnect", "attempts", maxReconnectAttempts)
}

// Channel returns the current channel.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close shuts the channel and connection down and stops redialing.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports whether the underlying connection is open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON marshals data and publishes it persistently to queue.
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// sanitizeURL redacts broker credentials so they never reach the log.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	return u.String()
}
