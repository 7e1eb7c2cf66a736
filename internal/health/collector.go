// Package health gathers best-effort operational snapshots. Every metric
// source is independently guarded: a failing source degrades its metric to a
// zero value and never destabilizes the system being observed.
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot is one immutable metrics record.
type Snapshot struct {
	CollectedAt       time.Time      `json:"collected_at"`
	QueueDepths       map[string]int `json:"queue_depths"`
	ActiveWorkers     int            `json:"active_workers"`
	StoreLatencyMS    int64          `json:"store_latency_ms"`
	StoreHealthy      bool           `json:"store_healthy"`
	CacheHealthy      bool           `json:"cache_healthy"`
	DeliveredLastHour int            `json:"delivered_last_hour"`
	FailedLastHour    int            `json:"failed_last_hour"`
}

// QueueStats exposes the queue metrics the collector reads.
type QueueStats interface {
	Depth(ctx context.Context, queueName string) (int, error)
}

// WorkerStats exposes the concurrency estimate.
type WorkerStats interface {
	ActiveJobs() int
}

// StoreProber exposes the store probes.
type StoreProber interface {
	Ping(ctx context.Context) error
	DeliveryCounts(ctx context.Context, since time.Time) (delivered, failed int, err error)
}

// Pinger checks reachability of an auxiliary dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TCPPinger probes a host:port with a short dial.
type TCPPinger struct {
	Addr string
}

func (p TCPPinger) Ping(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Collector periodically assembles snapshots.
type Collector struct {
	queues   []string
	stats    QueueStats
	workers  WorkerStats
	store    StoreProber
	cache    Pinger
	logger   *logrus.Logger
	interval time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	latest Snapshot
}

func NewCollector(queues []string, stats QueueStats, workers WorkerStats, store StoreProber, cache Pinger, logger *logrus.Logger, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Collector{
		queues:   queues,
		stats:    stats,
		workers:  workers,
		store:    store,
		cache:    cache,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run collects immediately and then on every interval until ctx is
// cancelled.
func (c *Collector) Run(ctx context.Context) {
	c.Collect(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Latest returns the most recent snapshot.
func (c *Collector) Latest() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Collect assembles one snapshot. Each sub-collection is guarded on its own.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	now := c.now()
	snap := Snapshot{
		CollectedAt: now,
		QueueDepths: make(map[string]int, len(c.queues)),
	}

	for _, q := range c.queues {
		depth, err := c.stats.Depth(ctx, q)
		if err != nil {
			c.logger.Warnf("Queue depth probe for %s failed: %v", q, err)
			depth = 0
		}
		snap.QueueDepths[q] = depth
	}

	if c.workers != nil {
		snap.ActiveWorkers = c.workers.ActiveJobs()
	}

	start := c.now()
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Warnf("Store probe failed: %v", err)
	} else {
		snap.StoreHealthy = true
		snap.StoreLatencyMS = c.now().Sub(start).Milliseconds()
	}

	if c.cache == nil {
		// No cache configured; nothing to degrade.
		snap.CacheHealthy = true
	} else if err := c.cache.Ping(ctx); err != nil {
		c.logger.Warnf("Cache probe failed: %v", err)
	} else {
		snap.CacheHealthy = true
	}

	delivered, failed, err := c.store.DeliveryCounts(ctx, now.Add(-time.Hour))
	if err != nil {
		c.logger.Warnf("Delivery counter probe failed: %v", err)
	} else {
		snap.DeliveredLastHour = delivered
		snap.FailedLastHour = failed
	}

	c.mu.Lock()
	c.latest = snap
	c.mu.Unlock()
	return snap
}
