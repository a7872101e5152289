package driver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

// wsDialer establishes gorilla/websocket channels.
type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, cfg *Config, sink EventSink) (Channel, error) {
	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
		TLSClientConfig:  cfg.TLSConfig,
	}
	conn, resp, err := d.DialContext(ctx, cfg.URL, cfg.Headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("gremlink: dial %s: %w (handshake status %d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("gremlink: dial %s: %w", cfg.URL, err)
	}
	ch := &wsChannel{conn: conn, sink: sink, closeTimeout: cfg.CloseTimeout}
	conn.SetPingHandler(func(data string) error {
		// Answer the peer's probe directly; no caller involvement.
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteWait))
		sink(ProbeReceived{})
		return err
	})
	conn.SetPongHandler(func(string) error {
		sink(ProbeAck{})
		return nil
	})
	return ch, nil
}

// wsChannel wraps one websocket connection. Control handlers and the read
// pump run on the same goroutine, so event delivery follows arrival order.
type wsChannel struct {
	conn         *websocket.Conn
	sink         EventSink
	closeTimeout time.Duration

	writeMu   sync.Mutex
	startOnce sync.Once
	abortOnce sync.Once
}

func (ch *wsChannel) Start() {
	ch.startOnce.Do(func() { go ch.readPump() })
}

func (ch *wsChannel) readPump() {
	for {
		_, payload, err := ch.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				ch.sink(ChannelClosed{Code: ce.Code, Graceful: ce.Code == websocket.CloseNormalClosure})
			} else {
				ch.sink(ChannelError{Err: err})
			}
			return
		}
		ch.sink(Frame{Payload: payload})
	}
}

func (ch *wsChannel) Send(payload []byte) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ch.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (ch *wsChannel) Probe() error {
	return ch.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (ch *wsChannel) Close() error {
	ch.writeMu.Lock()
	err := ch.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
	ch.writeMu.Unlock()
	// Bound the handshake: if the peer never echoes the close frame, the read
	// deadline releases the pump anyway.
	_ = ch.conn.SetReadDeadline(time.Now().Add(ch.closeTimeout))
	return err
}

func (ch *wsChannel) Abort() {
	ch.abortOnce.Do(func() { _ = ch.conn.Close() })
}
