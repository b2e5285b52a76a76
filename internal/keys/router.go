package keys

import (
	"bytes"
	"log/slog"
	"sync"
	"time"
)

// Router is the top-level state machine. It composes
// PasteFramer, DragHeuristic, KittyParser and LegacyDecoder, applies the
// Config's mode flags, and dispatches decoded events to its Hub.
//
// HandleChunk, HandleRecord and Close lock mu, giving a single logical
// event loop (Subscribe goes through the Hub's own lock instead):
// operations are serialised so observable event order matches byte
// arrival order even when HandleChunk/HandleRecord are called from
// different goroutines.
type Router struct {
	cfg    Config
	logger *slog.Logger

	mu sync.Mutex

	hub   *Hub
	paste pasteFramer
	drag  dragHeuristic

	kittyBuffer []byte
	rawBuffer   []byte

	dragTimer  *time.Timer
	flushTimer *time.Timer

	closed bool
}

// NewRouter creates a Router in its initial (idle) state. Buffers are empty
// until bytes or records arrive; call Close to tear down.
func NewRouter(cfg Config) *Router {
	logger := cfg.logger()
	return &Router{cfg: cfg, logger: logger, hub: NewHub(logger)}
}

// Subscribe registers handler for every emitted KeyEvent and returns an
// unsubscribe function. Safe to call concurrently with event delivery.
func (r *Router) Subscribe(handler Handler) (unsubscribe func()) {
	return r.hub.Subscribe(handler)
}

// Close cancels pending timers and discards all buffers without flushing.
// The Router must not be used afterward.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.cancelDragTimerLocked()
	r.cancelFlushTimerLocked()
	r.paste.reset()
	r.drag.reset()
	r.kittyBuffer = nil
	r.rawBuffer = nil
}

// HandleChunk delivers a raw, unparsed byte chunk from ByteIntake. Used
// unconditionally for escape-sequence bytes, and exclusively for all bytes
// when Config.PasteWorkaround is set.
func (r *Router) HandleChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if r.cfg.PasteWorkaround {
		r.handlePassthroughChunk(chunk)
		return
	}

	r.paste.feed(chunk, r.onPasteEventLocked, r.onNonPasteBytesLocked)
}

// HandleRecord delivers a pre-parsed keypress record from ByteIntake. In
// PasteWorkaround mode these are ignored.
func (r *Router) HandleRecord(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.cfg.PasteWorkaround {
		return
	}

	if rec.Ctrl && rec.Name == "c" {
		r.cancelStuckKittyBufferLocked()
		r.hub.Broadcast(KeyEvent{Name: "c", Ctrl: true, Sequence: rec.Sequence})
		return
	}

	ev := KeyEvent{Name: rec.Name, Sequence: rec.Sequence, Ctrl: rec.Ctrl, Meta: rec.Meta, Shift: rec.Shift}
	r.routeLocked(ev, isPlainSingleChar(ev))
}

// cancelStuckKittyBufferLocked implements the Ctrl+C-cancels-stuck-sequence
// contract.
func (r *Router) cancelStuckKittyBufferLocked() {
	if len(r.kittyBuffer) == 0 {
		return
	}
	if r.cfg.DebugKeystrokeLogging {
		r.logger.Debug("ctrl+c cleared stuck kitty buffer", "len", len(r.kittyBuffer))
	}
	r.kittyBuffer = nil
}

// onPasteEventLocked is the PasteFramer's emit callback: paste takes
// precedence over any in-flight drag accumulation.
func (r *Router) onPasteEventLocked(ev KeyEvent) {
	r.cancelDragTimerLocked()
	r.drag.reset()
	r.hub.Broadcast(ev)
}

// onNonPasteBytesLocked is the PasteFramer's passthrough callback for bytes
// outside any paste region: feed KittyParser (if enabled) and
// LegacyDecoder.
func (r *Router) onNonPasteBytesLocked(b []byte) {
	if !r.cfg.KittyProtocolEnabled {
		r.legacyConsumeAllLocked(b)
		return
	}

	r.kittyBuffer = append(r.kittyBuffer, b...)
	for len(r.kittyBuffer) > 0 {
		ev, consumed, outcome := parseKittySequence(r.kittyBuffer)
		switch outcome {
		case parseMatched:
			ev.Sequence = string(r.kittyBuffer[:consumed])
			ev.KittyProtocol = true
			r.kittyBuffer = r.kittyBuffer[consumed:]
			r.routeLocked(ev, false)
		case parsePartial:
			if len(r.kittyBuffer) > kittyBufferCap {
				if r.cfg.DebugKeystrokeLogging {
					r.logger.Debug("kitty buffer overflow", "len", len(r.kittyBuffer))
				}
				r.kittyBuffer = nil
			}
			return
		case parseReject:
			ev, n := legacyDecodeOne(r.kittyBuffer)
			r.kittyBuffer = r.kittyBuffer[n:]
			r.routeLocked(ev, isPlainSingleChar(ev))
		}
	}
}

// legacyConsumeAllLocked decodes and routes every byte in b via
// LegacyDecoder (kitty disabled path).
func (r *Router) legacyConsumeAllLocked(b []byte) {
	for len(b) > 0 {
		ev, n := legacyDecodeOne(b)
		b = b[n:]
		r.routeLocked(ev, isPlainSingleChar(ev))
	}
}

// routeLocked applies the DragHeuristic to a single decoded event
// before broadcasting. Must be called with mu held.
func (r *Router) routeLocked(ev KeyEvent, plainSingleChar bool) {
	if r.drag.active {
		if plainSingleChar {
			r.drag.append([]byte(ev.Sequence))
			r.armDragTimerLocked()
			return
		}
		flushed := r.drag.flush()
		r.cancelDragTimerLocked()
		r.emitBytesLocked(flushed)
		r.hub.Broadcast(ev)
		return
	}

	kittyInProgress := len(r.kittyBuffer) > 0 && r.kittyBuffer[0] == 0x1b
	if plainSingleChar && !r.paste.active() && !kittyInProgress && isQuote(ev.Sequence[0]) {
		r.drag.start(ev.Sequence[0])
		r.armDragTimerLocked()
		return
	}

	r.hub.Broadcast(ev)
}

// emitBytesLocked re-decodes a flushed drag accumulator as an ordinary run
// and broadcasts each resulting event.
func (r *Router) emitBytesLocked(b []byte) {
	for len(b) > 0 {
		ev, n := legacyDecodeOne(b)
		b = b[n:]
		r.hub.Broadcast(ev)
	}
}

// isPlainSingleChar reports whether ev looks like a single unmodified
// character record/key, the only kind DragHeuristic accumulates. Named keys
// such as return or tab, whose Name differs from their Sequence, are not
// plain characters.
func isPlainSingleChar(ev KeyEvent) bool {
	if ev.Ctrl || ev.Meta || ev.Shift || ev.KittyProtocol || ev.Paste {
		return false
	}
	if len(ev.Sequence) == 0 || ev.Name != ev.Sequence {
		return false
	}
	n := 0
	for range ev.Sequence {
		n++
		if n > 1 {
			return false
		}
	}
	return n == 1
}

// armDragTimerLocked (re)arms the quiet-period timer that flushes an
// in-flight drag accumulation.
func (r *Router) armDragTimerLocked() {
	r.cancelDragTimerLocked()
	r.dragTimer = time.AfterFunc(dragCompletionTimeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.onDragTimeoutLocked()
	})
}

func (r *Router) cancelDragTimerLocked() {
	if r.dragTimer != nil {
		r.dragTimer.Stop()
		r.dragTimer = nil
	}
}

func (r *Router) onDragTimeoutLocked() {
	if r.closed || !r.drag.active {
		return
	}
	ev := r.drag.expire()
	r.dragTimer = nil
	r.hub.Broadcast(ev)
}

// handlePassthroughChunk implements the short-flush coalescing buffer
// used when Config.PasteWorkaround is set.
func (r *Router) handlePassthroughChunk(chunk []byte) {
	r.rawBuffer = append(r.rawBuffer, chunk...)
	if len(r.rawBuffer) > rawBufferFlushCap {
		r.flushPassthroughLocked()
		return
	}
	r.armFlushTimerLocked()
}

func (r *Router) armFlushTimerLocked() {
	r.cancelFlushTimerLocked()
	r.flushTimer = time.AfterFunc(flushWindow, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.flushPassthroughLocked()
	})
}

func (r *Router) cancelFlushTimerLocked() {
	if r.flushTimer != nil {
		r.flushTimer.Stop()
		r.flushTimer = nil
	}
}

// flushPassthroughLocked hands the coalesced buffer to the framer/parser/
// decoder cascade, applying the heuristic: a buffered burst that
// looks paste-shaped (a start marker, a drag-opening quote followed by more
// bytes, or an embedded carriage return) is emitted as one paste event.
func (r *Router) flushPassthroughLocked() {
	if r.closed {
		return
	}
	r.cancelFlushTimerLocked()
	buf := r.rawBuffer
	r.rawBuffer = nil
	if len(buf) == 0 {
		return
	}

	if r.paste.active() || len(r.paste.tail) > 0 || bytes.Contains(buf, pasteStart) {
		r.paste.feed(buf, r.onPasteEventLocked, r.onNonPasteBytesLocked)
		return
	}

	looksLikePaste := (len(buf) > 1 && isQuote(buf[0])) || bytes.ContainsRune(buf, '\r')
	if looksLikePaste {
		r.hub.Broadcast(KeyEvent{Name: "", Paste: true, Sequence: string(buf)})
		return
	}

	r.onNonPasteBytesLocked(buf)
}
