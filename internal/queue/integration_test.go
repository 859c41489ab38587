//go:build integration

package queue_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/mlahtinen/gradery/internal/grading"
	"github.com/mlahtinen/gradery/internal/queue"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection("amqp://invalid:5672")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_Publish(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn, slog.Default())

	job := &queue.FileJob{
		ID:          uuid.New(),
		CourseKey:   "demo",
		ExerciseKey: "quiz1",
		FieldName:   "upload",
		UserID:      "alice",
		Lang:        "en",
		FileRef:     "stored/ref-1",
		CreatedAt:   time.Now(),
	}

	if err := producer.Publish(context.Background(), job); err != nil {
		t.Fatalf("failed to publish file job: %v", err)
	}

	// Verify by checking the queue has a message
	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.FileJobQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_Producer_Dispatch(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn, slog.Default())

	err = producer.Dispatch(context.Background(), grading.FileJob{
		CourseKey:   "demo",
		ExerciseKey: "quiz1",
		FieldName:   "upload",
		UserID:      "alice",
		Lang:        "en",
		FileRef:     "stored/ref-2",
	})
	if err != nil {
		t.Fatalf("failed to dispatch: %v", err)
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.FileJobQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_Connection_PublishJSON(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	result := queue.FileResult{
		JobID:       uuid.New(),
		Status:      "completed",
		Points:      5,
		MaxPoints:   10,
		Output:      "partial credit",
		CompletedAt: time.Now(),
	}

	if err := conn.PublishJSON(context.Background(), queue.ResultQueueName, result); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.ResultQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message, got %d", q.Messages)
	}
}
