package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the event snapshots are emitted under.
const DefaultEvent = "lpc:state"

// SocketOptions configure Connect.
type SocketOptions struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketPublisher emits snapshots over a socket.io connection.
type SocketPublisher struct {
	io     *socket.Socket
	event  string
	logger *slog.Logger
}

var _ flow.Observer = (*SocketPublisher)(nil)

// Connect dials the socket.io server and waits for the connection.
func Connect(ctx context.Context, o SocketOptions) (*SocketPublisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if o.Event == "" {
		o.Event = DefaultEvent
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	io := socket.NewManager(baseURL, opts).Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("notify channel connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketPublisher{io: io, event: o.Event, logger: logger}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(o.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.ConnectTimeout)
	}
}

// Observe implements flow.Observer. Snapshots are sent as plain JSON objects.
func (p *SocketPublisher) Observe(s flow.Snapshot) {
	payload, err := toPayload(s)
	if err != nil {
		p.logger.Error("failed to encode snapshot", "error", err)
		return
	}
	if !p.io.Connected() {
		p.logger.Debug("notify channel disconnected, snapshot dropped", "mode", s.Mode.String())
		return
	}
	p.io.Emit(p.event, payload)
}

// Close disconnects the publisher.
func (p *SocketPublisher) Close() error {
	p.logger.Info("closing notify channel", "sid", p.io.Id())
	p.io.Disconnect()
	return nil
}

func toPayload(s flow.Snapshot) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
