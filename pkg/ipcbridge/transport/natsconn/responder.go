package natsconn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/observability"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// HandlerFunc answers a request. reply may be called any number of times;
// each call publishes one response for req.ID.
type HandlerFunc func(ctx context.Context, req transport.Request, reply func(err error, data any))

// Responder is the remote side of the NATS transport. It serves the request
// subject and publishes replies on the response subject. A stopped
// Responder may be started again.
type Responder struct {
	config    Config
	handler   HandlerFunc
	publish   func(subject string, data []byte) error
	subscribe func(subject string, cb nats.MsgHandler) (unsubscribe func() error, err error)

	mu          sync.Mutex
	unsubscribe func() error
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewResponder creates a responder on an existing connection.
func NewResponder(conn *nats.Conn, cfg Config, handler HandlerFunc) *Responder {
	return &Responder{
		config:  cfg.applyDefaults(),
		handler: handler,
		publish: conn.Publish,
		subscribe: func(subject string, cb nats.MsgHandler) (func() error, error) {
			sub, err := conn.Subscribe(subject, cb)
			if err != nil {
				return nil, err
			}
			return sub.Unsubscribe, nil
		},
	}
}

// Start subscribes to the request subject. Handlers receive a context that
// is cancelled by the next Stop.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unsubscribe != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	subject := RequestSubject(r.config.SubjectPrefix)
	unsubscribe, err := r.subscribe(subject, r.handleMsg)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	r.unsubscribe = unsubscribe
	r.ctx, r.cancel = ctx, cancel
	return nil
}

// Stop unsubscribes and cancels the context passed to in-flight handlers.
func (r *Responder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unsubscribe == nil {
		return nil
	}
	r.cancel()
	err := r.unsubscribe()
	r.unsubscribe = nil
	return err
}

func (r *Responder) handlerContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *Responder) handleMsg(msg *nats.Msg) {
	req, err := transport.DecodeRequest(msg.Data)
	if err != nil {
		r.config.Logger.Warn("dropping malformed request",
			"subject", msg.Subject,
			"error", err,
		)
		return
	}

	logger := observability.EnrichLogger(r.config.Logger, req.ID, req.Event)
	subject := ResponseSubject(r.config.SubjectPrefix)
	reply := func(rerr error, data any) {
		out, err := transport.EncodeResponse(transport.Response{ID: req.ID, Err: rerr, Data: data})
		if err != nil {
			logger.Error("encode response failed", slog.String("error", err.Error()))
			return
		}
		if err := r.publish(subject, out); err != nil {
			logger.Error("publish response failed", slog.String("error", err.Error()))
		}
	}

	elapsed := observability.TimedOperation()
	r.handler(r.handlerContext(), req, reply)
	logger.Debug("request served", slog.Duration("duration", elapsed()))
}
