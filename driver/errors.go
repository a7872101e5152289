package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Submit/Open after a graceful Close completed.
	ErrClosed = errors.New("gremlink: connection closed")
	// ErrConnectionLost fails pending requests when the channel drops before
	// their terminal frame arrives.
	ErrConnectionLost = errors.New("gremlink: connection lost before response")
	// ErrNoAuthenticator is returned when the server issues a challenge but no
	// authenticator is configured.
	ErrNoAuthenticator = errors.New("gremlink: server requested authentication but no authenticator is configured")
	// ErrDuplicateRequestID rejects a Submit reusing an id that is still pending.
	ErrDuplicateRequestID = errors.New("gremlink: request id already pending")
)

// ResponseError carries a terminal error status received from the server.
type ResponseError struct {
	Code    int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("gremlink: server status %d: %s", e.Code, e.Message)
}
