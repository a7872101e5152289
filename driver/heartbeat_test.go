package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatAckCancelsDeadline(t *testing.T) {
	var probes, expires atomic.Int32
	h := startHeartbeat(5*time.Millisecond, 20*time.Millisecond,
		func() error { probes.Add(1); return nil },
		func() { expires.Add(1) })
	defer h.stop()

	// Ack every probe promptly; the deadline must never fire.
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		h.ack()
		time.Sleep(time.Millisecond)
	}
	if probes.Load() < 2 {
		t.Fatalf("expected repeated probes, got %d", probes.Load())
	}
	if expires.Load() != 0 {
		t.Fatalf("expected no expiry with prompt acks, got %d", expires.Load())
	}
}

func TestHeartbeatMissedDeadlineExpiresOnce(t *testing.T) {
	var expires atomic.Int32
	var h *heartbeat
	h = startHeartbeat(5*time.Millisecond, 15*time.Millisecond,
		func() error { return nil },
		func() {
			expires.Add(1)
			// Termination stops the monitor, as the connection does.
			h.stop()
		})
	defer h.stop()

	waitFor(t, "deadline expiry", func() bool { return expires.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := expires.Load(); got != 1 {
		t.Fatalf("expected exactly one expiry, got %d", got)
	}
}

func TestHeartbeatStopCancelsTimers(t *testing.T) {
	var expires atomic.Int32
	h := startHeartbeat(time.Millisecond, 5*time.Millisecond,
		func() error { return nil },
		func() { expires.Add(1) })
	time.Sleep(3 * time.Millisecond) // let a probe arm the deadline
	h.stop()
	time.Sleep(20 * time.Millisecond)
	if got := expires.Load(); got != 0 {
		t.Fatalf("stop must cancel the armed deadline, got %d expiries", got)
	}
}

func TestHeartbeatTimeoutTerminatesConnectionOnce(t *testing.T) {
	c, d := newTestConn(t, func(cfg *Config) {
		cfg.DisableHeartbeat = false
		cfg.HeartbeatInterval = 5 * time.Millisecond
		cfg.HeartbeatDeadline = 10 * time.Millisecond
	})
	fut, _ := submit(t, c)
	ch := d.channel(0)

	// Probes are sent but never acknowledged; the deadline must hard-abort
	// the channel exactly once.
	waitFor(t, "heartbeat termination", func() bool { return c.State() == StateClosed })
	if ch.probeCount() < 1 {
		t.Fatalf("expected at least one probe, got %d", ch.probeCount())
	}
	if _, err := waitResult(t, fut); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if got := d.dialCount(); got != 1 {
		t.Fatalf("reconnect disabled: expected 1 dial, got %d", got)
	}
}

func TestHeartbeatProbeAckFromChannel(t *testing.T) {
	c, d := newTestConn(t, func(cfg *Config) {
		cfg.DisableHeartbeat = false
		cfg.HeartbeatInterval = 5 * time.Millisecond
		cfg.HeartbeatDeadline = 25 * time.Millisecond
	})
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	ch := d.channel(0)

	// Answer every probe through the event path; the connection must stay up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(100 * time.Millisecond)
		for time.Now().Before(deadline) {
			if ch.probeCount() > 0 {
				ch.emit(ProbeAck{})
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
	<-done
	if c.State() != StateOpen {
		t.Fatalf("expected connection to stay open, got %s", c.State())
	}
}
