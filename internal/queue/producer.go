package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/mlahtinen/gradery/internal/grading"
)

// Producer publishes file grading jobs to the queue. Publishing is wrapped
// with retry and a circuit breaker so a flapping broker degrades to dropped
// external jobs instead of blocked grading requests.
type Producer struct {
	conn           *Connection
	retrier        retry.Retry[*FileJob]
	circuitBreaker circuitbreaker.CircuitBreaker[*FileJob]
	logger         *slog.Logger
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection, logger *slog.Logger) *Producer {
	p := &Producer{
		conn:   conn,
		logger: logger,
	}

	p.retrier = retry.New[*FileJob](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	p.circuitBreaker = circuitbreaker.New[*FileJob](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if p.logger != nil {
				p.logger.Warn("queue circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			}
		},
	})

	return p
}

// Dispatch publishes one file grading job. It satisfies the grading
// engine's dispatcher contract.
func (p *Producer) Dispatch(ctx context.Context, job grading.FileJob) error {
	msg := &FileJob{
		ID:          uuid.New(),
		CourseKey:   job.CourseKey,
		ExerciseKey: job.ExerciseKey,
		FieldName:   job.FieldName,
		UserID:      job.UserID,
		Lang:        job.Lang,
		FileRef:     job.FileRef,
		CreatedAt:   time.Now(),
	}
	return p.Publish(ctx, msg)
}

// Publish publishes a file job message.
func (p *Producer) Publish(ctx context.Context, job *FileJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	_, err := p.circuitBreaker.Execute(ctx, func(ctx context.Context) (*FileJob, error) {
		return p.retrier.Do(ctx, func(ctx context.Context) (*FileJob, error) {
			if err := p.conn.PublishJSON(ctx, FileJobQueueName, job); err != nil {
				return nil, err
			}
			return job, nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish file job: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("published file job",
			"job_id", job.ID,
			"course", job.CourseKey,
			"exercise", job.ExerciseKey,
			"field", job.FieldName,
		)
	}
	return nil
}
