// Package natsconn carries ipcbridge requests over NATS.
//
// Requests are published as JSON envelopes on "<prefix>.request" and
// responses are read from "<prefix>.response". Responses are matched by
// correlation id. The response subject is shared by every client on the
// prefix; use one prefix per client.
//
//	tr, err := natsconn.Connect(ctx, natsconn.Config{URL: nats.DefaultURL})
//	client := ipcbridge.New(tr)
package natsconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	ipcerrors "github.com/randalmurphal/ipcbridge/pkg/ipcbridge/errors"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "ipc"

// Config configures the NATS transport.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// SubjectPrefix namespaces the request and response subjects.
	// Default is "ipc". Every transport on a prefix subscribes to the same
	// response subject, so each client also receives the responses meant
	// for the others and reports them as unmatched (journaling them when a
	// journal is configured). Give each client its own prefix, e.g.
	// "ipc.<client-name>", and have the host answer on that prefix.
	SubjectPrefix string

	// Name is the connection name reported to the server.
	Name string

	// ConnectTimeout is the timeout for each connection attempt.
	// Default is 5 seconds.
	ConnectTimeout time.Duration

	// Retry controls connection and publish retries.
	// The zero value means a single attempt.
	Retry ipcerrors.RetryConfig

	// Logger for operational logging. If nil, uses slog.Default().
	Logger *slog.Logger

	// Options are passed to nats.Connect after the defaults.
	Options []nats.Option
}

func (c Config) applyDefaults() Config {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Retry.RetryableFunc == nil {
		c.Retry.RetryableFunc = isTransient
	}
	return c
}

// RequestSubject is the subject requests are published on.
func RequestSubject(prefix string) string {
	return prefix + ".request"
}

// ResponseSubject is the subject responses are read from.
func ResponseSubject(prefix string) string {
	return prefix + ".response"
}

// Transport is a transport.Transport backed by a NATS connection.
type Transport struct {
	config  Config
	conn    *nats.Conn
	ownConn bool
	publish func(subject string, data []byte) error

	mu       sync.Mutex
	receiver transport.Receiver
	sub      *nats.Subscription
	closed   bool
}

var _ transport.Transport = (*Transport)(nil)

// Connect dials the server, retrying transient failures per cfg.Retry.
// The returned transport owns the connection and closes it on Close.
func Connect(ctx context.Context, cfg Config) (*Transport, error) {
	cfg = cfg.applyDefaults()
	logger := cfg.Logger

	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	opts = append(opts, cfg.Options...)

	res := ipcerrors.WithRetryContext(ctx, cfg.Retry, func(context.Context) (*nats.Conn, error) {
		return nats.Connect(cfg.URL, opts...)
	})
	if res.Err != nil {
		logger.Error("failed to connect to NATS", "error", res.Err, "url", cfg.URL, "attempts", res.Attempts)
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, res.Err)
	}

	t := New(res.Value, cfg)
	t.ownConn = true
	return t, nil
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn *nats.Conn, cfg Config) *Transport {
	return &Transport{
		config:  cfg.applyDefaults(),
		conn:    conn,
		publish: conn.Publish,
	}
}

// Listen implements transport.Transport by subscribing to the response
// subject. Messages are delivered on the NATS client's goroutine.
func (t *Transport) Listen(r transport.Receiver) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}
	if t.receiver != nil {
		return transport.ErrAlreadyListening
	}

	subject := ResponseSubject(t.config.SubjectPrefix)
	sub, err := t.conn.Subscribe(subject, t.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	t.receiver = r
	t.sub = sub
	t.config.Logger.Info("NATS subscription started", "subject", subject)
	return nil
}

// handleMsg decodes a response and hands it to the receiver. Undecodable
// messages are logged and dropped.
func (t *Transport) handleMsg(msg *nats.Msg) {
	t.mu.Lock()
	r := t.receiver
	t.mu.Unlock()
	if r == nil {
		return
	}

	resp, err := transport.DecodeResponse(msg.Data)
	if err != nil {
		t.config.Logger.Warn("dropping malformed response",
			"subject", msg.Subject,
			"error", err,
		)
		return
	}
	r.Dispatch(resp)
}

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, req transport.Request) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}

	data, err := transport.EncodeRequest(req)
	if err != nil {
		return err
	}

	subject := RequestSubject(t.config.SubjectPrefix)
	attempts, err := ipcerrors.Retry(ctx, t.config.Retry, func(context.Context) error {
		return t.publish(subject, data)
	})
	if err != nil {
		return fmt.Errorf("publish %s after %d attempt(s): %w", subject, attempts, err)
	}
	return nil
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.receiver = nil

	var errs []error
	if t.sub != nil {
		if err := t.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, fmt.Errorf("unsubscribe: %w", err))
		}
		t.sub = nil
	}
	if t.ownConn && t.conn != nil {
		t.conn.Close()
	}
	return errors.Join(errs...)
}

// isTransient reports NATS conditions worth retrying, falling back to the
// generic categorization.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrReconnectBufExceeded),
		errors.Is(err, nats.ErrConnectionReconnecting):
		return true
	}
	return ipcerrors.IsRetryable(err)
}
