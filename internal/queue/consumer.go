package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
)

// Consumer claims jobs from the queues it has handlers for and runs them on a
// bounded set of job slots. Handlers are registered before Start and never
// after, so the registry needs no locking at consume time.
type Consumer struct {
	queue        *Queue
	handlers     map[string]Handler // "<queue>/<job name>" -> handler
	keys         []string
	slots        int
	pollInterval time.Duration
	active       atomic.Int64
	started      bool
	mu           sync.Mutex
}

func NewConsumer(q *Queue, slots int, pollInterval time.Duration) *Consumer {
	if slots <= 0 {
		slots = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Consumer{
		queue:        q,
		handlers:     make(map[string]Handler),
		slots:        slots,
		pollInterval: pollInterval,
	}
}

// Consume registers a handler for a (queue, job name) pair. Must be called
// before Start.
func (c *Consumer) Consume(queueName, jobName string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		c.queue.logger.Warnf("Consume(%s, %s) called after Start, ignoring", queueName, jobName)
		return
	}
	key := queueName + "/" + jobName
	if _, dup := c.handlers[key]; dup {
		c.queue.logger.Warnf("Handler for %s replaced", key)
	}
	c.handlers[key] = h
	c.keys = append(c.keys, key)
}

// ActiveJobs estimates how many job slots are currently executing handlers.
func (c *Consumer) ActiveJobs() int {
	return int(c.active.Load())
}

// Start launches the job slots. They run until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	for i := 0; i < c.slots; i++ {
		wg.Add(1)
		go c.runSlot(ctx, wg, i)
	}
}

func (c *Consumer) runSlot(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			c.queue.logger.Infof("Job slot %d stopped", id)
			return
		default:
		}

		j, ok, err := c.claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.queue.logger.Errorf("Job claim failed: %v", err)
			c.sleep(ctx)
			continue
		}
		if !ok {
			c.sleep(ctx)
			continue
		}
		c.run(ctx, j)
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.pollInterval):
	}
}

// claim atomically takes the oldest runnable job this consumer has a handler
// for. SKIP LOCKED keeps concurrent slots and worker processes from claiming
// the same row.
func (c *Consumer) claim(ctx context.Context) (job, bool, error) {
	query := `
	UPDATE jobs SET status = $1, updated_at = NOW()
	WHERE id = (
		SELECT id FROM jobs
		WHERE status = $2 AND run_at <= NOW() AND queue || '/' || name = ANY($3)
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	RETURNING id, queue, name, payload, attempts, max_attempts, backoff_delay_ms`

	var j job
	err := c.queue.pool.QueryRow(ctx, query, statusActive, statusPending, c.keys).Scan(
		&j.ID, &j.Queue, &j.Name, &j.Payload, &j.Attempts, &j.MaxAttempts, &j.BackoffDelayMS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job{}, false, nil
		}
		return job{}, false, err
	}
	return j, true, nil
}

func (c *Consumer) run(ctx context.Context, j job) {
	c.active.Add(1)
	defer c.active.Add(-1)

	handler := c.handlers[j.Queue+"/"+j.Name]
	err := handler(ctx, j.Payload)
	if err == nil {
		c.finish(ctx, j.ID, statusCompleted, "")
		return
	}

	attempt := j.Attempts + 1
	if IsPermanent(err) || attempt >= j.MaxAttempts {
		c.queue.logger.Errorf("Job %s (%s/%s) failed permanently after attempt %d: %v",
			j.ID, j.Queue, j.Name, attempt, err)
		c.fail(ctx, j.ID, attempt, err.Error())
		return
	}

	delay := Backoff(time.Duration(j.BackoffDelayMS)*time.Millisecond, attempt)
	c.queue.logger.Warnf("Job %s (%s/%s) attempt %d/%d failed, retrying in %s: %v",
		j.ID, j.Queue, j.Name, attempt, j.MaxAttempts, delay, err)
	c.retry(ctx, j.ID, attempt, delay, err.Error())
}

func (c *Consumer) finish(ctx context.Context, id any, status, lastErr string) {
	_, err := c.queue.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_error = $2, updated_at = NOW() WHERE id = $3`,
		status, lastErr, id,
	)
	if err != nil {
		c.queue.logger.Errorf("Failed to finalize job %v: %v", id, err)
	}
}

func (c *Consumer) fail(ctx context.Context, id any, attempt int, lastErr string) {
	_, err := c.queue.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, last_error = $3, updated_at = NOW() WHERE id = $4`,
		statusFailed, attempt, lastErr, id,
	)
	if err != nil {
		c.queue.logger.Errorf("Failed to fail job %v: %v", id, err)
	}
}

func (c *Consumer) retry(ctx context.Context, id any, attempt int, delay time.Duration, lastErr string) {
	_, err := c.queue.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, last_error = $3, run_at = NOW() + $4, updated_at = NOW() WHERE id = $5`,
		statusPending, attempt, lastErr, delay, id,
	)
	if err != nil {
		c.queue.logger.Errorf("Failed to reschedule job %v: %v", id, err)
	}
}
