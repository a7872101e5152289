package driver

import (
	"context"
	"fmt"
	"sync"
)

// fakeChannel is an in-memory Channel delivering scripted events through the
// dial-time sink. Events emitted before Start are buffered, matching the
// transport contract.
type fakeChannel struct {
	mu       sync.Mutex
	sink     EventSink
	started  bool
	buffered []Event
	sent     [][]byte
	probes   int
	aborted  bool

	failSend error
	// onClose runs when the graceful close handshake starts; the default
	// emits a graceful ChannelClosed like a well-behaved peer.
	onClose func(f *fakeChannel)
}

func (f *fakeChannel) Start() {
	f.mu.Lock()
	f.started = true
	queued := f.buffered
	f.buffered = nil
	f.mu.Unlock()
	for _, ev := range queued {
		f.sink(ev)
	}
}

func (f *fakeChannel) emit(ev Event) {
	f.mu.Lock()
	if !f.started {
		f.buffered = append(f.buffered, ev)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.sink(ev)
}

func (f *fakeChannel) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return f.failSend
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeChannel) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeChannel) Probe() error {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func (f *fakeChannel) Close() error {
	if f.onClose != nil {
		f.onClose(f)
		return nil
	}
	f.emit(ChannelClosed{Code: 1000, Graceful: true})
	return nil
}

func (f *fakeChannel) Abort() {
	f.mu.Lock()
	if f.aborted {
		f.mu.Unlock()
		return
	}
	f.aborted = true
	f.mu.Unlock()
	f.emit(ChannelError{Err: fmt.Errorf("channel aborted")})
}

// fakeDialer hands out fakeChannels, optionally failing attempts or gating
// them on a channel to model slow handshakes.
type fakeDialer struct {
	mu    sync.Mutex
	dials int
	fail  []error // per-attempt; nil entry (or exhausted) means success
	chans []*fakeChannel
	gate  chan struct{} // when set, Dial blocks until the gate closes
}

func (d *fakeDialer) Dial(ctx context.Context, cfg *Config, sink EventSink) (Channel, error) {
	d.mu.Lock()
	attempt := d.dials
	d.dials++
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if attempt < len(d.fail) && d.fail[attempt] != nil {
		return nil, d.fail[attempt]
	}
	ch := &fakeChannel{sink: sink}
	d.chans = append(d.chans, ch)
	return ch, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) channel(i int) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.chans) {
		return nil
	}
	return d.chans[i]
}
