package keys

import "bytes"

var (
	pasteStart = []byte{0x1b, '[', '2', '0', '0', '~'}
	pasteEnd   = []byte{0x1b, '[', '2', '0', '1', '~'}
)

// pasteState is the PasteFramer's two-state machine.
type pasteState int

const (
	pasteIdle pasteState = iota
	pastePasting
)

// pasteFramer recognises bracketed-paste markers across chunk boundaries.
// It scans each raw chunk once and hands non-paste bytes to next for
// ordinary decoding.
type pasteFramer struct {
	state pasteState
	acc   []byte
	// tail holds a trailing run from the previous chunk that is a proper
	// prefix of pasteStart (or, while pasting, of pasteEnd), so a marker
	// split across the chunk boundary is still recognised. At most
	// len(pasteStart)-1 bytes.
	tail []byte
}

// feed processes chunk, emitting paste events via emit and forwarding
// non-paste runs to next. next receives ordinary bytes in original order.
func (p *pasteFramer) feed(chunk []byte, emit func(KeyEvent), next func([]byte)) {
	data := append(p.tail, chunk...)
	p.tail = nil

	i := 0
	for i < len(data) {
		switch p.state {
		case pasteIdle:
			idx := bytes.Index(data[i:], pasteStart)
			if idx < 0 {
				// No start marker ahead. Only withhold a trailing run that
				// is itself a genuine (proper) prefix of pasteStart, in case
				// the marker straddles this chunk and the next one —
				// everything else is ordinary data and must be forwarded
				// now, regardless of chunk length.
				keep := partialMarkerSuffixLen(data[i:], pasteStart)
				if keep > 0 {
					next(data[i : len(data)-keep])
					p.tail = append([]byte{}, data[len(data)-keep:]...)
				} else {
					next(data[i:])
				}
				return
			}
			if idx > 0 {
				next(data[i : i+idx])
			}
			i += idx + len(pasteStart)
			p.state = pastePasting
			p.acc = p.acc[:0]
		case pastePasting:
			idx := bytes.Index(data[i:], pasteEnd)
			if idx < 0 {
				keep := partialMarkerSuffixLen(data[i:], pasteEnd)
				p.acc = append(p.acc, data[i:len(data)-keep]...)
				if keep > 0 {
					p.tail = append([]byte{}, data[len(data)-keep:]...)
				}
				return
			}
			p.acc = append(p.acc, data[i:i+idx]...)
			emit(KeyEvent{Name: "", Paste: true, Sequence: string(p.acc)})
			p.acc = nil
			i += idx + len(pasteEnd)
			p.state = pasteIdle
		}
	}
}

// partialMarkerSuffixLen returns the length of the longest proper suffix of
// data that equals a prefix of marker — i.e. how many trailing bytes of data
// could be the start of marker if more bytes follow in a later chunk. Zero
// if no such suffix exists.
func partialMarkerSuffixLen(data, marker []byte) int {
	limit := len(marker) - 1
	if limit > len(data) {
		limit = len(data)
	}
	for l := limit; l > 0; l-- {
		if bytes.Equal(data[len(data)-l:], marker[:l]) {
			return l
		}
	}
	return 0
}

// active reports whether a paste is currently being accumulated.
func (p *pasteFramer) active() bool { return p.state == pastePasting }

// reset discards any in-flight paste state without emitting (teardown / overflow).
func (p *pasteFramer) reset() {
	p.state = pasteIdle
	p.acc = nil
	p.tail = nil
}
