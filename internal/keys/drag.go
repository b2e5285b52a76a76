package keys

// dragHeuristic detects a quoted drag-and-drop file path: a top-level
// segment that opens with a single or double quote outside any paste
// region, with no kitty sequence in progress, followed by a quiet period.
type dragHeuristic struct {
	active bool
	acc    []byte
}

// isQuote reports whether b can open a drag-and-drop candidate.
func isQuote(b byte) bool { return b == '\'' || b == '"' }

// start begins accumulation with the leading quote byte. Callers must not
// call start while active is true.
func (d *dragHeuristic) start(quote byte) {
	d.active = true
	d.acc = []byte{quote}
}

// append adds the bytes of a subsequent single-character record.
func (d *dragHeuristic) append(b []byte) {
	d.acc = append(d.acc, b...)
}

// flush returns the accumulated bytes as an ordinary (non-paste) run and
// clears drag state. Used when a non-single-character event interrupts
// accumulation.
func (d *dragHeuristic) flush() []byte {
	out := d.acc
	d.active = false
	d.acc = nil
	return out
}

// expire emits the accumulated bytes as a synthetic paste event and clears
// state. Called on quiet-timer expiry.
func (d *dragHeuristic) expire() KeyEvent {
	ev := KeyEvent{Name: "", Paste: true, Sequence: string(d.acc)}
	d.active = false
	d.acc = nil
	return ev
}

func (d *dragHeuristic) reset() {
	d.active = false
	d.acc = nil
}
