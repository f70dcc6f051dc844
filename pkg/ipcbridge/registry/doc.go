/*
Package registry holds the pending handlers of in-flight requests, keyed by
correlation id.

# Overview

Every request issued through an ipcbridge client allocates a correlation id
and registers an Entry before the request leaves the process. Inbound
responses are matched against the registry either by id (the production
path) or by event name (the fallback transport).

	reg := registry.New()
	reg.Register(registry.Entry{
	    ID:      id,
	    Event:   "ping",
	    Mode:    registry.ModeOnce,
	    Handler: func(err error, data any) { ... },
	})

	entry, ok := reg.Lookup(id)
	first, ok := reg.FindFirstByEvent("ping")

# Ordering

Entries keep their insertion order. FindFirstByEvent returns the oldest entry
for an event, and Snapshot lists entries oldest first. Registering an id that
already exists replaces the entry in place: the handler changes but the
position does not, unless the event changes too.

# Thread Safety

Registry is safe for concurrent use. Handlers are stored, never invoked, by
the registry; callers run them after the lookup returns so a handler may
remove itself without deadlocking.
*/
package registry
