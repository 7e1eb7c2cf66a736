package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schedulerLockKey identifies the advisory lock that keeps the trigger
// scheduler a singleton across replicas.
const schedulerLockKey = 0x52454d31 // "REM1"

// SchedulerLock holds a session-level Postgres advisory lock. The lock lives
// as long as the pinned connection; releasing the connection releases it.
type SchedulerLock struct {
	conn *pgxpool.Conn
}

// TryAcquireSchedulerLock attempts to take the scheduler advisory lock. It
// returns (nil, nil) when another process already holds it.
func (d *DB) TryAcquireSchedulerLock(ctx context.Context) (*SchedulerLock, error) {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for scheduler lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, schedulerLockKey).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take scheduler lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, nil
	}
	return &SchedulerLock{conn: conn}, nil
}

// Release gives the lock back.
func (l *SchedulerLock) Release(ctx context.Context) {
	_, _ = l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, schedulerLockKey)
	l.conn.Release()
}
