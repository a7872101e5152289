package driver

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/matst80/gremlink/graphson"
)

// Config holds all connection options. The zero value plus a URL is usable;
// withDefaults fills in everything else.
type Config struct {
	// URL is the server endpoint, e.g. ws://localhost:8182/gremlin.
	URL string
	// TLSConfig supplies trust and certificate material for wss endpoints.
	TLSConfig *tls.Config
	// Headers are extra headers sent with the opening handshake.
	Headers http.Header
	// MimeType is the content type negotiated with the server.
	MimeType string
	// TraversalSource is the logical source alias bound in request aliases.
	TraversalSource string
	// Authenticator answers authentication challenges; nil fails them.
	Authenticator Authenticator

	// DisableHeartbeat turns off liveness probing entirely.
	DisableHeartbeat bool
	// HeartbeatInterval is the probe period.
	HeartbeatInterval time.Duration
	// HeartbeatDeadline is how long a probe may go unacknowledged before the
	// channel is forcibly terminated.
	HeartbeatDeadline time.Duration

	// DisableReconnect turns off background reopening after abnormal loss.
	DisableReconnect bool
	// ReconnectPolicy schedules reopen attempts. Defaults to a constant 500ms
	// delay with no attempt cap; wrap with backoff.WithMaxRetries to bound it.
	ReconnectPolicy backoff.BackOff
	// LeavePendingOnDrop keeps pending requests registered across an abnormal
	// channel loss instead of failing them with ErrConnectionLost. Requests
	// left registered this way wait forever; only enable for strict
	// compatibility with drivers that behave that way.
	LeavePendingOnDrop bool

	// LazyOpen defers dialing until the first Open/Submit instead of opening
	// on construction.
	LazyOpen bool
	// DialTimeout bounds the opening handshake.
	DialTimeout time.Duration
	// CloseTimeout bounds the graceful close handshake before the channel is
	// torn down anyway.
	CloseTimeout time.Duration
}

const (
	defaultHeartbeatInterval = 60 * time.Second
	defaultHeartbeatDeadline = 30 * time.Second
	defaultReconnectDelay    = 500 * time.Millisecond
	defaultDialTimeout       = 15 * time.Second
	defaultCloseTimeout      = 5 * time.Second
)

// withDefaults returns a copy with unset options filled in.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.MimeType == "" {
		out.MimeType = graphson.MimeV3
	}
	if out.TraversalSource == "" {
		out.TraversalSource = "g"
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = defaultHeartbeatInterval
	}
	if out.HeartbeatDeadline <= 0 {
		out.HeartbeatDeadline = defaultHeartbeatDeadline
	}
	if out.ReconnectPolicy == nil {
		out.ReconnectPolicy = backoff.NewConstantBackOff(defaultReconnectDelay)
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = defaultDialTimeout
	}
	if out.CloseTimeout <= 0 {
		out.CloseTimeout = defaultCloseTimeout
	}
	return &out
}
