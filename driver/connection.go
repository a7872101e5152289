package driver

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/matst80/gremlink/graphson"
	"github.com/matst80/gremlink/internal/obs"
)

// State is the connection lifecycle position.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// attempt is a one-shot completion shared by every caller waiting on the same
// open or close transition.
type attempt struct {
	done chan struct{}
	err  error
}

func newAttempt() *attempt { return &attempt{done: make(chan struct{})} }

func (a *attempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connection owns one logical session to one server endpoint: at most one
// physical channel at a time, the pending-request table, the heartbeat and the
// reconnection policy. All channel events funnel through a single dispatch
// function per channel generation.
type Connection struct {
	cfg    *Config
	codec  Codec
	dialer Dialer

	mu             sync.Mutex
	state          State
	gen            uint64 // bumped per dial; stale channel events are ignored
	ch             Channel
	opening        *attempt
	closing        *attempt
	closeRequested bool
	terminal       bool // graceful caller-initiated close completed
	hb             *heartbeat
	reconnectTimer *time.Timer
	policy         backoff.BackOff

	pending *pendingTable
}

// NewConnection builds a connection over the websocket transport with the
// GraphSON codec. It does not dial; call Open or let Submit open implicitly.
func NewConnection(cfg *Config) *Connection {
	full := cfg.withDefaults()
	return newConnection(full, wsDialer{}, graphson.NewCodec(full.MimeType))
}

func newConnection(cfg *Config, dialer Dialer, codec Codec) *Connection {
	return &Connection{
		cfg:     cfg,
		codec:   codec,
		dialer:  dialer,
		policy:  cfg.ReconnectPolicy,
		pending: newPendingTable(),
	}
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingCount reports how many requests await a terminal response.
func (c *Connection) PendingCount() int { return c.pending.size() }

// Open establishes the channel. It is idempotent: when already open it
// returns immediately, and concurrent callers during the handshake share one
// dial attempt and one outcome. A handshake failure is returned to the caller
// and not retried here; reconnection only applies after an established
// connection later drops.
func (c *Connection) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	if c.opening != nil {
		att := c.opening
		c.mu.Unlock()
		return att.wait(ctx)
	}
	if c.closing != nil {
		att := c.closing
		c.mu.Unlock()
		if err := att.wait(ctx); err != nil {
			return err
		}
		return ErrClosed
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	att := newAttempt()
	c.opening = att
	c.state = StateOpening
	c.mu.Unlock()

	go c.dial(att)
	return att.wait(ctx)
}

func (c *Connection) dial(att *attempt) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	dctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	ch, err := c.dialer.Dial(dctx, c.cfg, func(ev Event) { c.dispatch(gen, ev) })

	c.mu.Lock()
	c.opening = nil
	if err != nil {
		c.state = StateClosed
		c.mu.Unlock()
		obs.Error("conn.open.fail", obs.Fields{"url": c.cfg.URL, "err": err.Error()})
		obs.ErrorsTotal.WithLabelValues("open").Inc()
		att.err = err
		close(att.done)
		return
	}
	c.ch = ch
	c.state = StateOpen
	if !c.cfg.DisableHeartbeat {
		c.hb = startHeartbeat(c.cfg.HeartbeatInterval, c.cfg.HeartbeatDeadline, ch.Probe, func() { c.expireChannel(gen) })
	}
	c.policy.Reset()
	c.mu.Unlock()

	ch.Start()
	obs.Info("conn.open", obs.Fields{"url": c.cfg.URL})
	close(att.done)
}

// Submit serializes and writes one request, opening the connection first if
// needed. The returned future resolves when the request reaches a terminal
// state. A zero RequestID gets a generated one.
func (c *Connection) Submit(ctx context.Context, msg *graphson.RequestMessage) (*ResultFuture, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	if msg.RequestID == uuid.Nil {
		msg.RequestID = uuid.New()
	}
	p := &pendingRequest{id: msg.RequestID, future: newResultFuture(), started: time.Now()}
	if err := c.pending.add(p); err != nil {
		return nil, err
	}
	if err := c.write(msg); err != nil {
		c.pending.remove(msg.RequestID)
		return nil, err
	}
	obs.Debug("conn.submit", obs.Fields{"requestId": msg.RequestID.String(), "op": msg.Op})
	return p.future, nil
}

// write encodes and sends without touching the pending table. The auth replay
// path uses it directly so no second table entry appears for a replayed id.
func (c *Connection) write(msg *graphson.RequestMessage) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return ErrConnectionLost
	}
	frame, err := c.codec.EncodeRequest(msg)
	if err != nil {
		return fmt.Errorf("gremlink: encode request: %w", err)
	}
	return ch.Send(frame)
}

// dispatch is the single reaction point for channel events. Termination and
// ack events from a superseded channel generation are dropped.
func (c *Connection) dispatch(gen uint64, ev Event) {
	switch ev := ev.(type) {
	case Frame:
		c.handleFrame(ev.Payload)
	case ProbeAck:
		c.mu.Lock()
		hb := c.hb
		current := c.gen
		c.mu.Unlock()
		if hb != nil && gen == current {
			hb.ack()
		}
	case ProbeReceived:
		obs.Debug("conn.probe.peer", obs.Fields{})
	case ChannelError:
		c.handleTermination(gen, ev.Err, false)
	case ChannelClosed:
		c.handleTermination(gen, fmt.Errorf("gremlink: channel closed (code %d)", ev.Code), ev.Graceful)
	}
}

func (c *Connection) handleFrame(payload []byte) {
	resp, err := c.codec.DecodeResponse(payload)
	if err != nil {
		obs.ErrorsTotal.WithLabelValues("decode").Inc()
		c.failAllPending(fmt.Errorf("gremlink: undecodable response: %w", err))
		return
	}
	code := resp.Status.Code
	obs.FramesTotal.WithLabelValues(strconv.Itoa(code)).Inc()

	if !resp.HasRequestID {
		// No attribution is possible, so this failure is shared by every
		// pending request on the connection.
		obs.ErrorsTotal.WithLabelValues("no_request_id").Inc()
		c.failAllPending(fmt.Errorf("gremlink: response without request id: %w",
			&ResponseError{Code: code, Message: resp.Status.Message}))
		return
	}

	p := c.pending.get(resp.RequestID)
	if p == nil {
		// Already completed or never registered here.
		obs.Debug("frame.drop", obs.Fields{"requestId": resp.RequestID.String(), "code": code})
		return
	}

	switch {
	case code == graphson.StatusAuthenticate:
		c.handleChallenge(p, resp)
	case code >= 400:
		if p := c.pending.remove(resp.RequestID); p != nil {
			p.fail(&ResponseError{Code: code, Message: resp.Status.Message})
		}
	case code == graphson.StatusNoContent:
		if p := c.pending.remove(resp.RequestID); p != nil {
			p.complete(nil)
		}
	case code == graphson.StatusPartialContent:
		p.appendPartial(resp.Data)
	default:
		if p := c.pending.remove(resp.RequestID); p != nil {
			p.complete(resp.Data)
		}
	}
}

func (c *Connection) handleChallenge(p *pendingRequest, resp *graphson.ResponseMessage) {
	if c.cfg.Authenticator == nil {
		if q := c.pending.remove(p.id); q != nil {
			q.fail(ErrNoAuthenticator)
		}
		return
	}
	args, err := c.cfg.Authenticator.Evidence(resp)
	if err != nil {
		if q := c.pending.remove(p.id); q != nil {
			q.fail(fmt.Errorf("gremlink: authentication challenge: %w", err))
		}
		return
	}
	p.awaitingAuth = true
	reply := &graphson.RequestMessage{
		RequestID: p.id,
		Op:        graphson.OpAuthentication,
		Processor: graphson.ProcessorTraversal,
		Args:      args,
	}
	obs.Debug("conn.auth.replay", obs.Fields{"requestId": p.id.String()})
	if err := c.write(reply); err != nil {
		if q := c.pending.remove(p.id); q != nil {
			q.fail(fmt.Errorf("gremlink: send authentication reply: %w", err))
		}
	}
}

func (c *Connection) failAllPending(err error) {
	for _, p := range c.pending.drain() {
		p.fail(err)
	}
}

// expireChannel hard-aborts the channel after a missed probe deadline. The
// abort surfaces as a channel event, which drives the termination path once.
func (c *Connection) expireChannel(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.ch == nil {
		c.mu.Unlock()
		return
	}
	ch := c.ch
	c.mu.Unlock()
	ch.Abort()
}

// handleTermination runs once per channel: stops the heartbeat, discards the
// handle, completes a waiting Close, fails pending requests unless configured
// otherwise, and schedules reconnection for uncommanded losses.
func (c *Connection) handleTermination(gen uint64, cause error, graceful bool) {
	c.mu.Lock()
	if gen != c.gen || c.ch == nil {
		c.mu.Unlock()
		return
	}
	ch := c.ch
	c.ch = nil
	if c.hb != nil {
		c.hb.stop()
		c.hb = nil
	}
	wasOpen := c.state == StateOpen || c.state == StateClosing
	requested := c.closeRequested
	closing := c.closing

	var reconnect bool
	if requested {
		c.state = StateClosed
		c.terminal = true
	} else if !c.cfg.DisableReconnect && wasOpen {
		c.state = StateReconnecting
		reconnect = true
	} else {
		c.state = StateClosed
	}
	c.mu.Unlock()

	ch.Abort()

	if requested || graceful {
		obs.Info("conn.closed", obs.Fields{"requested": requested})
	} else {
		obs.Error("conn.lost", obs.Fields{"err": cause.Error()})
		obs.ErrorsTotal.WithLabelValues("abnormal_close").Inc()
	}

	if !c.cfg.LeavePendingOnDrop {
		failure := error(ErrClosed)
		if !requested {
			failure = fmt.Errorf("%w: %v", ErrConnectionLost, cause)
		}
		c.failAllPending(failure)
	}

	if closing != nil {
		close(closing.done)
	}
	if reconnect {
		c.scheduleReconnect()
	}
}

// Close performs the graceful close handshake. It is idempotent: a second
// call joins the close already in progress.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closing != nil {
		att := c.closing
		c.mu.Unlock()
		<-att.done
		return att.err
	}
	if c.opening != nil {
		att := c.opening
		c.mu.Unlock()
		<-att.done
		return c.Close()
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.ch == nil {
		c.state = StateClosed
		c.terminal = true
		c.mu.Unlock()
		return nil
	}
	att := newAttempt()
	c.closing = att
	c.closeRequested = true
	c.state = StateClosing
	ch := c.ch
	c.mu.Unlock()

	if err := ch.Close(); err != nil {
		// Handshake could not even start; tear down and let the resulting
		// event resolve the close attempt.
		ch.Abort()
	}
	<-att.done
	return att.err
}

func (c *Connection) scheduleReconnect() {
	delay := c.policy.NextBackOff()
	if delay == backoff.Stop {
		c.mu.Lock()
		if c.state == StateReconnecting {
			c.state = StateClosed
		}
		c.mu.Unlock()
		obs.Info("reconnect.exhausted", obs.Fields{})
		return
	}
	obs.ReconnectsTotal.Inc()
	obs.Info("reconnect.schedule", obs.Fields{"delay": delay.String()})
	c.mu.Lock()
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.state != StateReconnecting || c.closeRequested {
			c.mu.Unlock()
			return
		}
		c.state = StateClosed
		c.mu.Unlock()
		// Best effort: a failure here is logged only; the next Submit opens
		// synchronously and surfaces its own error.
		if err := c.Open(context.Background()); err != nil {
			obs.Error("reconnect.fail", obs.Fields{"err": err.Error()})
		}
	})
	c.mu.Unlock()
}
