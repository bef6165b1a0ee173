package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/poiesic/inflow/core"
)

// WebSocketConfig bounds a streaming session: how long to run, how many
// messages to take, and how persistently to reconnect.
type WebSocketConfig struct {
	// MaxMessages stops the stream after this many messages; zero means
	// no cap.
	MaxMessages int

	// Timeout is the wall-clock budget for the whole session; zero means
	// no budget.
	Timeout time.Duration

	// MaxReconnectAttempts bounds consecutive failed dials. Default 5.
	MaxReconnectAttempts int

	// ReconnectOnError controls whether transport errors trigger a
	// reconnect or terminate the stream.
	ReconnectOnError bool

	// BackoffBase and BackoffCap shape the delay before retry n:
	// min(n*BackoffBase, BackoffCap). Defaults 2s and 30s.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// HeartbeatInterval, when positive, sends a ping control frame at most
	// every interval to keep idle connections alive.
	HeartbeatInterval time.Duration

	// Transform, when set, rewrites each decoded message before it is
	// serialized into an item.
	Transform func(any) any

	// Headers are sent with the dial request.
	Headers http.Header

	// Dialer overrides the websocket dialer. Default
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

func (c *WebSocketConfig) applyDefaults() {
	if c.MaxReconnectAttempts < 1 {
		c.MaxReconnectAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// WebSocketConnector consumes a message stream, yielding one item per
// inbound message. Messages are JSON-decoded with a raw-text fallback.
// Transport failures yield error-tagged items; with ReconnectOnError set
// the connector redials with a capped linear backoff until
// MaxReconnectAttempts consecutive failures.
type WebSocketConnector struct {
	cfg WebSocketConfig
}

// NewWebSocketConnector applies defaults and returns a connector.
func NewWebSocketConnector(cfg WebSocketConfig) (*WebSocketConnector, error) {
	cfg.applyDefaults()
	return &WebSocketConnector{cfg: cfg}, nil
}

// Open returns a stream over the socket at source. The first dial happens
// on the first Next call.
func (c *WebSocketConnector) Open(ctx context.Context, source string) (Stream, error) {
	return &wsStream{cfg: c.cfg, source: source, started: time.Now()}, nil
}

type wsStream struct {
	cfg    WebSocketConfig
	source string

	conn        *websocket.Conn
	started     time.Time
	connectedAt time.Time

	messages int
	attempts int // consecutive failures since the last successful connect
	lastPing time.Time
	done     bool
}

func (s *wsStream) Next(ctx context.Context) (core.ProcessedData, error) {
	for {
		if s.done {
			return core.ProcessedData{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			s.shutdown()
			return core.ProcessedData{}, err
		}
		if s.cutoffReached() {
			s.shutdown()
			return core.ProcessedData{}, io.EOF
		}

		if s.conn == nil {
			item, connected, err := s.connect(ctx)
			if err != nil {
				return core.ProcessedData{}, err
			}
			if !connected {
				return item, nil
			}
			continue
		}

		item, ok := s.read()
		if !ok {
			continue
		}
		return item, nil
	}
}

func (s *wsStream) cutoffReached() bool {
	if s.cfg.MaxMessages > 0 && s.messages >= s.cfg.MaxMessages {
		return true
	}
	if s.cfg.Timeout > 0 && time.Since(s.started) >= s.cfg.Timeout {
		return true
	}
	return false
}

// connect makes one dial attempt, sleeping the backoff first when retrying
// after a failure. A failed dial yields an error-tagged item; when the
// attempt budget is spent the stream terminates.
func (s *wsStream) connect(ctx context.Context) (core.ProcessedData, bool, error) {
	if s.attempts > 0 {
		backoff := time.Duration(s.attempts) * s.cfg.BackoffBase
		if backoff > s.cfg.BackoffCap {
			backoff = s.cfg.BackoffCap
		}
		select {
		case <-ctx.Done():
			s.shutdown()
			return core.ProcessedData{}, false, ctx.Err()
		case <-time.After(backoff):
		}
	}

	s.attempts++
	conn, resp, err := s.cfg.Dialer.DialContext(ctx, s.source, s.cfg.Headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if !s.cfg.ReconnectOnError || s.attempts >= s.cfg.MaxReconnectAttempts {
			s.done = true
		}
		return s.errorItem(fmt.Sprintf("connecting to %s: %v", s.source, err)), false, nil
	}

	s.conn = conn
	s.attempts = 0
	s.connectedAt = time.Now()
	s.lastPing = s.connectedAt
	return core.ProcessedData{}, true, nil
}

// read takes one message off the connection. The second return is false
// when no item should be yielded and the caller should loop (timeout
// cutoff, clean close handled via s.done).
func (s *wsStream) read() (core.ProcessedData, bool) {
	if s.cfg.HeartbeatInterval > 0 && time.Since(s.lastPing) >= s.cfg.HeartbeatInterval {
		s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		s.lastPing = time.Now()
	}
	if s.cfg.Timeout > 0 {
		s.conn.SetReadDeadline(s.started.Add(s.cfg.Timeout))
	}

	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		s.conn.Close()
		s.conn = nil

		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.done = true
			return core.ProcessedData{}, false
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// Wall-clock budget spent mid-read.
			s.done = true
			return core.ProcessedData{}, false
		}

		if !s.cfg.ReconnectOnError || s.attempts+1 >= s.cfg.MaxReconnectAttempts {
			s.done = true
		} else {
			s.attempts++
		}
		return s.errorItem(fmt.Sprintf("reading from %s: %v", s.source, err)), true
	}

	s.messages++
	return s.makeItem(payload), true
}

func (s *wsStream) makeItem(payload []byte) core.ProcessedData {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		raw = map[string]any{"raw": string(payload)}
	}
	if s.cfg.Transform != nil {
		raw = s.cfg.Transform(raw)
	}

	content, err := json.Marshal(raw)
	if err != nil {
		content = payload
	}

	return core.ProcessedData{
		Raw:        raw,
		Content:    string(content),
		SourceType: core.SourceTypeWebSocket,
		SourceURL:  s.source,
		Checksum:   core.FingerprintBytes(content),
		Metadata: map[string]string{
			"message": strconv.Itoa(s.messages),
		},
		Stats: core.ProcessingStats{
			Messages:  s.messages,
			Connected: time.Since(s.connectedAt),
		},
	}
}

func (s *wsStream) errorItem(message string) core.ProcessedData {
	return core.ProcessedData{
		SourceType: core.SourceTypeWebSocket,
		SourceURL:  s.source,
		Err:        message,
		Stats: core.ProcessingStats{
			Messages: s.messages,
		},
	}
}

func (s *wsStream) shutdown() {
	s.done = true
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
