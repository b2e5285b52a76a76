// Package terminal is the ByteIntake of the keypress pipeline: it owns the
// raw terminal handle, flips raw mode on activation and back on teardown,
// and delivers both pre-parsed keypress records and raw data chunks to the
// router in arrival order.
package terminal

import (
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-tty"
)

// Record is a pre-parsed keypress, the first of ByteIntake's two event
// sources. It carries enough information for the router's Ctrl+C-cancels-
// stuck-sequence rule without requiring escape-sequence decoding here; any
// byte run that starts with ESC is instead delivered whole via OnChunk.
type Record struct {
	Name     string
	Sequence string
	Ctrl     bool
	Meta     bool
	Shift    bool
}

// ResizeEvent reports a terminal size change (SIGWINCH on POSIX).
type ResizeEvent struct {
	Width, Height int
}

// Options configures a Terminal's callbacks. OnChunk and OnRecord must be
// safe to call from the terminal's read goroutine; both typically forward
// straight into a Router's HandleChunk/HandleRecord, which are themselves
// safe for that.
type Options struct {
	// PasteWorkaround, when true, disables Record decoding entirely: every
	// byte is delivered through OnChunk.
	PasteWorkaround bool
	OnChunk         func([]byte)
	OnRecord        func(Record)
}

// Terminal switches the controlling TTY to raw mode on New and restores it on Close,
// reading in the background and dispatching to Options' callbacks.
type Terminal struct {
	tty       *tty.TTY
	done      chan struct{}
	resizeCh  chan ResizeEvent
	closeOnce sync.Once
}

// New opens the controlling TTY in raw/cbreak mode and starts the read
// loop. A failure here is fatal to the caller.
func New(opts Options) (*Terminal, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("terminal: open tty: %w", err)
	}

	term := &Terminal{
		tty:      t,
		done:     make(chan struct{}),
		resizeCh: make(chan ResizeEvent, 4),
	}

	sigChan := setupTermSignal()
	var cleanupOnce sync.Once
	setupSignalReraising(sigChan, &cleanupOnce, func() { term.Close() })

	resizeSig := setupResizeSignal()
	go term.watchResize(resizeSig)

	go term.readLoop(opts)

	return term, nil
}

// Resize returns a channel of terminal resize notifications.
func (t *Terminal) Resize() <-chan ResizeEvent { return t.resizeCh }

// Close restores the terminal and stops the read loop. Safe to call more
// than once.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		_ = t.tty.Close()
	})
}

func (t *Terminal) watchResize(sig chan os.Signal) {
	for range sig {
		w, h, err := t.tty.Size()
		if err != nil {
			continue
		}
		select {
		case t.resizeCh <- ResizeEvent{Width: w, Height: h}:
		case <-t.done:
			return
		default:
			// drop if the subscriber isn't keeping up; resize is a
			// best-effort notification, not part of the key-event stream.
		}
	}
}

func (t *Terminal) readLoop(opts Options) {
	f := t.tty.Input()
	buf := make([]byte, 4096)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		n, err := f.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			t.dispatch(chunk, opts)
		}
		if err != nil {
			return
		}
	}
}

// dispatch splits a raw read into pre-parsed Records for plain bytes and
// raw sub-chunks for anything starting with ESC — escape-sequence framing
// belongs entirely to the router's KittyParser/LegacyDecoder cascade.
func (t *Terminal) dispatch(chunk []byte, opts Options) {
	if opts.PasteWorkaround {
		opts.OnChunk(chunk)
		return
	}

	i := 0
	for i < len(chunk) {
		if chunk[i] == 0x1b {
			opts.OnChunk(chunk[i:])
			return
		}
		rec, n := decodeRecord(chunk[i:])
		i += n
		opts.OnRecord(rec)
	}
}

// decodeRecord decodes the single plain (non-ESC) logical item at the
// front of data into a Record.
func decodeRecord(data []byte) (Record, int) {
	b := data[0]
	switch {
	case b == '\r':
		return Record{Name: "return", Sequence: "\r"}, 1
	case b == '\t':
		return Record{Name: "tab", Sequence: "\t"}, 1
	case b == 0x7f || b == '\b':
		return Record{Name: "backspace", Sequence: string(b)}, 1
	case b == 0x03:
		return Record{Name: "c", Ctrl: true, Sequence: string(b)}, 1
	case b < 0x20:
		return Record{Name: string(rune(b + 0x60)), Ctrl: true, Sequence: string(b)}, 1
	default:
		r, size := decodeRune(data)
		return Record{Name: string(r), Sequence: string(data[:size])}, size
	}
}

func decodeRune(data []byte) (rune, int) {
	b := data[0]
	if b < 0x80 {
		return rune(b), 1
	}

	var size int
	var r rune
	switch {
	case b&0xE0 == 0xC0:
		size, r = 2, rune(b&0x1F)
	case b&0xF0 == 0xE0:
		size, r = 3, rune(b&0x0F)
	case b&0xF8 == 0xF0:
		size, r = 4, rune(b&0x07)
	default:
		return rune(b), 1
	}
	if len(data) < size {
		return rune(b), 1
	}
	for i := 1; i < size; i++ {
		r = r<<6 | rune(data[i]&0x3F)
	}
	return r, size
}
