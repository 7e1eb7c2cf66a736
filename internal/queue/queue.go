// Package queue implements named, durable, at-least-once job queues on top of
// Postgres. Jobs are retried with increasing delay up to a per-job attempt
// limit, then marked failed and kept for inspection. Delivery is FIFO within a
// queue and handlers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Queue names observed across the deployment.
const (
	HighPriority = "high-priority"
	Default      = "default"
	LowPriority  = "low-priority"
	Scheduled    = "scheduled"
)

// Job names carried by the queues.
const (
	JobReminderTrigger  = "reminder.trigger"
	JobNotificationSend = "notification.send"
)

// Job statuses.
const (
	statusPending   = "pending"
	statusActive    = "active"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Options control a job's retry policy.
type Options struct {
	Attempts     int
	BackoffDelay time.Duration
}

// DefaultOptions is the fixed retry policy used by the scheduler and
// processors.
var DefaultOptions = Options{Attempts: 3, BackoffDelay: time.Second}

// Handler processes one job payload. A returned error triggers a retry unless
// it is wrapped with Permanent.
type Handler func(ctx context.Context, payload []byte) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: the job is failed immediately instead
// of burning its remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backoff returns the delay before the given retry attempt (1-based),
// doubling the base delay each time.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

type job struct {
	ID             uuid.UUID
	Queue          string
	Name           string
	Payload        []byte
	Attempts       int
	MaxAttempts    int
	BackoffDelayMS int64
}

// Queue is a handle over the durable job tables shared by all processes.
type Queue struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

func New(pool *pgxpool.Pool, logger *logrus.Logger) *Queue {
	return &Queue{pool: pool, logger: logger}
}

// Enqueue durably stores a job and returns. The payload is serialized as
// JSON.
func (q *Queue) Enqueue(ctx context.Context, queueName, jobName string, payload any, opts Options) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", jobName, err)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultOptions.Attempts
	}
	if opts.BackoffDelay <= 0 {
		opts.BackoffDelay = DefaultOptions.BackoffDelay
	}

	query := `
	INSERT INTO jobs (id, queue, name, payload, status, max_attempts, backoff_delay_ms, run_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err = q.pool.Exec(ctx, query,
		uuid.New(), queueName, jobName, body, statusPending,
		opts.Attempts, opts.BackoffDelay.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s on %s: %w", jobName, queueName, err)
	}
	return nil
}

// Depth returns the number of pending jobs in a queue.
func (q *Queue) Depth(ctx context.Context, queueName string) (int, error) {
	var n int
	err := q.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE queue = $1 AND status = $2`,
		queueName, statusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to read depth of %s: %w", queueName, err)
	}
	return n, nil
}
