// Package keyboard is the public surface of the terminal keypress pipeline:
// a Router that turns raw terminal bytes into a typed stream of KeyEvent
// values, plus a Session helper that owns the underlying terminal's
// lifecycle, keeping internal/terminal and internal/keys behind a thin
// public facade.
package keyboard

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/yarlson/tap/internal/keys"
	"github.com/yarlson/tap/internal/terminal"
)

// KeyEvent is the only output type the pipeline produces. See internal/keys
// for the full field documentation; it is aliased here so callers never
// import the internal package directly.
type KeyEvent = keys.KeyEvent

// Config controls a Router's behavior. See internal/keys for field
// documentation.
type Config = keys.Config

// Handler receives broadcast KeyEvents.
type Handler = keys.Handler

// Router decodes a raw terminal byte stream into KeyEvents and fans them
// out to subscribers.
type Router struct {
	id uuid.UUID
	*keys.Router
}

// NewRouter creates a Router with a fresh session id, attached to every log
// line the Router writes so that diagnostics from more than one Router in a
// process can be told apart.
func NewRouter(cfg Config) *Router {
	id := uuid.New()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger.With("router", id.String())
	return &Router{id: id, Router: keys.NewRouter(cfg)}
}

// ID returns this Router's session id.
func (r *Router) ID() uuid.UUID { return r.id }

// Session owns a Terminal and the Router reading from it, giving explicit
// Open/Close lifecycle control instead of a package-level singleton.
type Session struct {
	term   *terminal.Terminal
	router *Router
}

// Open switches the terminal to raw mode and starts routing its input
// through a new Router configured per cfg.
func Open(cfg Config) (*Session, error) {
	router := NewRouter(cfg)

	term, err := terminal.New(terminal.Options{
		PasteWorkaround: cfg.PasteWorkaround,
		OnChunk:         router.HandleChunk,
		OnRecord: func(rec terminal.Record) {
			router.HandleRecord(keys.Record(rec))
		},
	})
	if err != nil {
		router.Close()
		return nil, err
	}

	return &Session{term: term, router: router}, nil
}

// Router returns the session's Router for subscribing to KeyEvents.
func (s *Session) Router() *Router { return s.router }

// Resize returns a channel of terminal resize notifications.
func (s *Session) Resize() <-chan terminal.ResizeEvent { return s.term.Resize() }

// Close restores the terminal and tears down the Router. No new events are
// delivered after Close returns.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.term != nil {
		s.term.Close()
	}
	if s.router != nil {
		s.router.Close()
	}
}
