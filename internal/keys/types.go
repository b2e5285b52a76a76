// Package keys implements the keypress pipeline: a byte-level state machine
// that turns a raw terminal input stream into a typed stream of KeyEvent
// values, disambiguating ordinary keypresses, the Kitty keyboard protocol,
// bracketed paste, and a drag-and-drop quoted-path heuristic.
package keys

import (
	"log/slog"
	"time"
)

// KeyEvent is the only output type the pipeline produces.
type KeyEvent struct {
	// Name is the canonical key identifier ("return", "escape", "up", a
	// single character, or "" for paste events).
	Name string
	// Sequence is the exact byte run that produced this event, as text.
	Sequence string
	Ctrl     bool
	Meta     bool
	Shift    bool
	// Paste is true for bracketed-paste and drag-synthesised events.
	Paste bool
	// KittyProtocol is true iff this event was decoded via a kitty sequence.
	KittyProtocol bool
}

// Record is a pre-parsed keypress delivered by ByteIntake when the terminal
// layer itself recognises a key (used outside PasteWorkaround mode). It
// mirrors the shape of a KeyEvent but without Paste/KittyProtocol framing,
// since those are the Router's job.
type Record struct {
	Name     string
	Sequence string
	Ctrl     bool
	Meta     bool
	Shift    bool
}

// Config is immutable for the lifetime of a Router.
type Config struct {
	// KittyProtocolEnabled turns on kitty sequence decoding.
	KittyProtocolEnabled bool
	// PasteWorkaround switches the Router into passthrough mode: Records
	// from the intake are ignored and raw chunks alone drive events,
	// coalesced through a short flush buffer.
	PasteWorkaround bool
	// DebugKeystrokeLogging emits diagnostic records for buffer state
	// transitions via Logger (or slog.Default() if Logger is nil).
	DebugKeystrokeLogging bool
	// Logger receives diagnostic output when DebugKeystrokeLogging is set.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Timing and buffer-size values for the router's internal state machines.
const (
	// dragCompletionTimeout is the quiet period after the last byte of a
	// quoted drag-and-drop candidate before it is flushed as a paste.
	dragCompletionTimeout = 100 * time.Millisecond
	// flushWindow is the passthrough short-flush coalescing window.
	flushWindow = 8 * time.Millisecond
	// kittyBufferCap bounds the kitty accumulation buffer.
	kittyBufferCap = 64
	// rawBufferFlushCap forces an immediate flush in passthrough mode.
	rawBufferFlushCap = 64
)
