/*
Package ipcbridge correlates requests with responses over an asynchronous
duplex channel to another process.

# Overview

A Client sends named requests with arguments through a Transport. Each
request gets a fresh correlation id and a pending handler in the client's
registry. Responses come back tagged with that id and are routed to the
handler. Two consumption modes exist:

  - One-shot: RequestOnce returns a Future that completes with the first
    response. The handler removes itself before completing the future.
  - Callback: RequestCallback invokes a handler for every response with its
    id until the handler is removed with RemoveByID or RemoveAllByEvent.

# Basic Usage

	client, err := ipcbridge.New(natsTransport)
	if err != nil {
	    log.Fatal(err)
	}
	defer client.Close()

	f := client.RequestOnce(ctx, "ping")
	data, err := f.Wait(ctx)

	// Typed results
	var status Status
	status, err = ipcbridge.Await[Status](ctx, client.RequestOnce(ctx, "status"))

	// Streams
	id, err := client.RequestCallback(ctx, "tail", func(err error, data any) {
	    if err != nil {
	        log.Println("tail failed:", err)
	        return
	    }
	    line, _ := ipcbridge.Decode[string](data)
	    fmt.Println(line)
	}, "/var/log/app.log")
	...
	client.RemoveByID(id)

# Errors

Errors reported by the other process arrive as *RemoteError values through
the future or the handler's error argument; nothing is raised synchronously.
A request the transport refuses is reported the same way, as a *SendError.

SetErrorHandler installs a single handler that observes every error
delivered to any request, before the request's own handler runs:

	client.SetErrorHandler(func(err error) {
	    logger.Warn("ipc error", "error", err)
	})

# Matching

Production transports match responses by correlation id (Dispatch). A
response for an unknown id is dropped and recorded in the journal when one
is configured (WithJournal).

The fallback transport, used when no peer is attached, matches by event
name (DispatchEvent) and buffers responses that arrive before any handler
for their event. With several outstanding requests for the same event a
buffered response goes to the oldest handler, which may not be the request
it was meant for.

# Cancellation

Cancelling the context passed to Future.Wait stops waiting but leaves the
handler registered. Use RemoveByID(f.ID()) to stop delivery. Close rejects
every pending future with ErrClientClosed.

# Observability

	client, err := ipcbridge.New(tr,
	    ipcbridge.WithLogger(logger),
	    ipcbridge.WithMetrics(observability.NewMetricsRecorder()),
	    ipcbridge.WithSpanManager(observability.NewSpanManager()),
	)

Open builds a fully configured client from config.Settings.

# Thread Safety

Client is safe for concurrent use. Handlers run on the goroutine that
delivered the response and never while an internal lock is held, so a
handler may issue new requests or remove handlers.
*/
package ipcbridge
