package driver

import (
	"context"

	"github.com/matst80/gremlink/graphson"
)

// Event is the closed set of channel notifications fed to a Connection's
// dispatch function. Transports emit events from a single goroutine so the
// dispatch order matches arrival order.
type Event interface{ isEvent() }

// Frame carries one inbound wire frame.
type Frame struct{ Payload []byte }

// ProbeReceived reports a peer-initiated liveness probe. The transport has
// already sent the acknowledgment by the time this event is delivered.
type ProbeReceived struct{}

// ProbeAck reports the peer's acknowledgment of a probe we sent.
type ProbeAck struct{}

// ChannelError reports a transport failure; the channel is unusable afterwards.
type ChannelError struct{ Err error }

// ChannelClosed reports that the channel is gone. Graceful is true only when
// the peer completed the close handshake.
type ChannelClosed struct {
	Code     int
	Graceful bool
}

func (Frame) isEvent()         {}
func (ProbeReceived) isEvent() {}
func (ProbeAck) isEvent()      {}
func (ChannelError) isEvent()  {}
func (ChannelClosed) isEvent() {}

// EventSink receives channel events in arrival order.
type EventSink func(Event)

// Channel is one established physical channel to the server. Send calls may
// come from multiple goroutines; implementations serialize writes.
type Channel interface {
	// Start begins event delivery to the sink given at dial time. No event may
	// be delivered before Start; the connection calls it exactly once, after
	// registering the channel.
	Start()
	// Send writes one outbound frame.
	Send(payload []byte) error
	// Probe sends a liveness probe; the ack comes back as a ProbeAck event.
	Probe() error
	// Close starts the graceful close handshake. The eventual ChannelClosed
	// event completes it.
	Close() error
	// Abort tears the channel down immediately without a close handshake.
	Abort()
}

// Dialer establishes channels. Events from the resulting channel are delivered
// to sink until a ChannelError or ChannelClosed event ends the stream.
type Dialer interface {
	Dial(ctx context.Context, cfg *Config, sink EventSink) (Channel, error)
}

// Codec is the pluggable serializer/deserializer collaborator.
type Codec interface {
	EncodeRequest(m *graphson.RequestMessage) ([]byte, error)
	DecodeResponse(b []byte) (*graphson.ResponseMessage, error)
}
