package store

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Monitor tracks MongoDB reachability with a periodic ping and exposes the
// result as a Probe. Reconnecting is the driver's job; the monitor only
// observes whether the deployment currently answers.
type Monitor struct {
	client   *mongo.Client
	interval time.Duration
	up       atomic.Bool
	logger   *slog.Logger
}

// NewMonitor creates a monitor for the given client. The initial state is
// down until the first ping succeeds.
func NewMonitor(client *mongo.Client, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{client: client, interval: interval, logger: logger}
}

// Probe returns the connectivity probe backed by this monitor.
func (m *Monitor) Probe() Probe {
	return m.up.Load
}

// Run pings until ctx is cancelled, logging transitions between up and down.
func (m *Monitor) Run(ctx context.Context) {
	m.ping(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ping(ctx)
		}
	}
}

func (m *Monitor) ping(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.client.Ping(pingCtx, readpref.Primary())
	was := m.up.Swap(err == nil)
	switch {
	case err == nil && !was:
		m.logger.Info("durable store reachable, durable mode active")
	case err != nil && was:
		m.logger.Warn("durable store unreachable, fallback mode active",
			slog.String("error", err.Error()))
	}
}
