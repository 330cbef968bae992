package conn

import (
	"context"
	"time"
)

// Heartbeat probes every registered channel on a fixed interval and
// evicts the ones that stop answering.
//
// The protocol gives each channel two intervals of grace: a sweep
// first checks the liveness flag set by any traffic since the previous
// sweep, evicting channels whose flag is still clear, then clears the
// flag and sends a ping. A healthy device answers with a pong (or any
// frame) before the next sweep, so only a device silent across two
// full intervals is dropped.
type Heartbeat struct {
	registry *Registry
	interval time.Duration
	logger   Logger
}

// NewHeartbeat creates a heartbeat monitor over the registry.
func NewHeartbeat(registry *Registry, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		registry: registry,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger injects the application logger.
func (h *Heartbeat) SetLogger(l Logger) {
	if l != nil {
		h.logger = l
	}
}

// Run executes sweeps until the context is cancelled. Always returns
// nil; the signature matches errgroup.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("heartbeat monitor started", "interval", h.interval.String())
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("heartbeat monitor stopped")
			return nil
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep performs one probe cycle. Exported so tests can drive the
// monitor without real time.
func (h *Heartbeat) Sweep() {
	for _, p := range h.registry.snapshot() {
		if !p.alive {
			h.evict(p, "missed heartbeat")
			continue
		}
		// Channel gone or superseded between snapshot and now.
		if !h.registry.markPending(p.deviceID, p.kind, p.sock) {
			continue
		}
		if err := p.sock.Ping(); err != nil {
			h.evict(p, "ping failed")
		}
	}
}

func (h *Heartbeat) evict(p probe, reason string) {
	_ = p.sock.Close()
	h.registry.Deregister(p.deviceID, p.kind, p.sock)
	h.logger.Warn("channel evicted", "device_id", p.deviceID, "kind", p.kind, "reason", reason)
}
