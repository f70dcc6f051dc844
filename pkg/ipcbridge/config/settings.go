package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Transport kinds accepted in Settings.Transport.
const (
	TransportNATS     = "nats"
	TransportMemory   = "memory"
	TransportFallback = "fallback"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the typed client configuration.
//
//	transport: nats
//	log_level: info
//	unmatched_errors: false
//	metrics: true
//	tracing: true
//	nats:
//	  url: nats://127.0.0.1:4222
//	  servers: [nats://a:4222, nats://b:4222] # overrides url
//	  subject_prefix: ipc
//	  connect_timeout: 5s
//	  retries: 3
//	fallback:
//	  delay: 1ms
//	journal:
//	  path: ./unmatched.db
//	  max_size: 1000
type Settings struct {
	Transport       string
	LogLevel        string
	UnmatchedErrors bool
	Metrics         bool
	Tracing         bool

	// NATSURL is one server URL or a comma-separated list.
	NATSURL string

	// SubjectPrefix namespaces the request and response subjects. Clients
	// sharing a prefix share one response subject and each sees the
	// others' responses as unmatched, so give every client its own prefix.
	SubjectPrefix  string
	ConnectTimeout time.Duration
	Retries        int

	FallbackDelay time.Duration

	// JournalPath selects a SQLite journal. Empty means an in-memory journal
	// bounded by JournalMaxSize; "off" disables journaling.
	JournalPath    string
	JournalMaxSize int
}

// DefaultSettings returns the settings used for absent keys.
func DefaultSettings() Settings {
	return Settings{
		Transport:      TransportFallback,
		LogLevel:       "info",
		NATSURL:        "nats://127.0.0.1:4222",
		SubjectPrefix:  "ipc",
		ConnectTimeout: 5 * time.Second,
		Retries:        3,
		FallbackDelay:  time.Millisecond,
		JournalMaxSize: 1000,
	}
}

// SettingsFrom extracts and validates Settings from cfg.
func SettingsFrom(cfg Config) (Settings, error) {
	d := DefaultSettings()

	nats := cfg.Sub("nats")
	fb := cfg.Sub("fallback")
	journal := cfg.Sub("journal")

	s := Settings{
		Transport:       strings.ToLower(cfg.String("transport", d.Transport)),
		LogLevel:        cfg.String("log_level", d.LogLevel),
		UnmatchedErrors: cfg.Bool("unmatched_errors", d.UnmatchedErrors),
		Metrics:         cfg.Bool("metrics", d.Metrics),
		Tracing:         cfg.Bool("tracing", d.Tracing),

		NATSURL:        nats.String("url", d.NATSURL),
		SubjectPrefix:  nats.String("subject_prefix", d.SubjectPrefix),
		ConnectTimeout: nats.Duration("connect_timeout", d.ConnectTimeout),
		Retries:        nats.Int("retries", d.Retries),

		FallbackDelay: fb.Duration("delay", d.FallbackDelay),

		JournalPath:    journal.String("path", d.JournalPath),
		JournalMaxSize: journal.Int("max_size", d.JournalMaxSize),
	}

	if nats.Has("servers") {
		s.NATSURL = strings.Join(nats.StringSlice("servers", nil), ",")
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	switch s.Transport {
	case TransportNATS:
		if s.NATSURL == "" {
			return fmt.Errorf("%w: nats.url is required for the nats transport", ErrInvalidSettings)
		}
		if s.SubjectPrefix == "" {
			return fmt.Errorf("%w: nats.subject_prefix must not be empty", ErrInvalidSettings)
		}
	case TransportMemory, TransportFallback:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidSettings, s.Transport)
	}

	if s.FallbackDelay < 0 {
		return fmt.Errorf("%w: fallback.delay must not be negative", ErrInvalidSettings)
	}
	if s.ConnectTimeout < 0 {
		return fmt.Errorf("%w: nats.connect_timeout must not be negative", ErrInvalidSettings)
	}
	if s.Retries < 0 {
		return fmt.Errorf("%w: nats.retries must not be negative", ErrInvalidSettings)
	}
	if s.JournalMaxSize < 0 {
		return fmt.Errorf("%w: journal.max_size must not be negative", ErrInvalidSettings)
	}
	return nil
}

// JournalDisabled reports whether unmatched responses should not be recorded.
func (s Settings) JournalDisabled() bool {
	return strings.EqualFold(s.JournalPath, "off")
}
