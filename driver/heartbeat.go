package driver

import (
	"sync"
	"time"

	"github.com/matst80/gremlink/internal/obs"
)

// heartbeat probes the channel on a fixed interval and enforces an ack
// deadline. At most one deadline timer is armed at a time; an ack cancels it
// before the next probe is issued. A missed deadline calls expire exactly once.
type heartbeat struct {
	interval time.Duration
	deadline time.Duration
	probe    func() error
	expire   func()

	mu       sync.Mutex
	pending  *time.Timer // armed probe deadline, nil when acked
	stopped  bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func startHeartbeat(interval, deadline time.Duration, probe func() error, expire func()) *heartbeat {
	h := &heartbeat{
		interval: interval,
		deadline: deadline,
		probe:    probe,
		expire:   expire,
		stopCh:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *heartbeat) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.sendProbe()
		case <-h.stopCh:
			return
		}
	}
}

func (h *heartbeat) sendProbe() {
	h.mu.Lock()
	if h.stopped || h.pending != nil {
		// Previous probe still awaiting its ack; its deadline stands.
		h.mu.Unlock()
		return
	}
	h.pending = time.AfterFunc(h.deadline, h.onDeadline)
	h.mu.Unlock()

	if err := h.probe(); err != nil {
		obs.Error("heartbeat.probe", obs.Fields{"err": err.Error()})
		// The write failure will surface through the channel's own error
		// event; the armed deadline makes sure we terminate even if not.
	}
}

func (h *heartbeat) onDeadline() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.pending = nil
	h.mu.Unlock()
	obs.HeartbeatTimeoutsTotal.Inc()
	obs.Error("heartbeat.timeout", obs.Fields{"deadline": h.deadline.String()})
	h.expire()
}

// ack cancels the armed deadline after the peer answered our probe.
func (h *heartbeat) ack() {
	h.mu.Lock()
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
	h.mu.Unlock()
}

// stop cancels all timers. Safe to call repeatedly and from expire.
func (h *heartbeat) stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.mu.Lock()
	h.stopped = true
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
	h.mu.Unlock()
}
