package keys

// legacyDecodeOne decodes the single logical item at the front of data:
// a printable rune, a known control code, or a classic CSI arrow/home/end/
// shift-tab sequence. It returns the event and how many bytes were
// consumed.
func legacyDecodeOne(data []byte) (KeyEvent, int) {
	if len(data) == 0 {
		return KeyEvent{}, 0
	}

	b := data[0]
	switch {
	case b == 0x1b:
		if len(data) >= 2 && data[1] == '[' {
			if ev, n, ok := legacyCSI(data[2:]); ok {
				ev.Sequence = string(data[:2+n])
				return ev, 2 + n
			}
			if n := skipCSI(data[2:]); n > 0 {
				return KeyEvent{Name: "escape", Sequence: string(data[:2+n])}, 2 + n
			}
		}
		return KeyEvent{Name: "escape", Sequence: "\x1b"}, 1
	case b == '\r':
		return KeyEvent{Name: "return", Sequence: "\r"}, 1
	case b == '\t':
		return KeyEvent{Name: "tab", Sequence: "\t"}, 1
	case b == 0x7f || b == '\b':
		return KeyEvent{Name: "backspace", Sequence: string(b)}, 1
	case b == 0x03:
		return KeyEvent{Name: "c", Ctrl: true, Sequence: string(b)}, 1
	case b < 0x20:
		// other C0 control byte: report as ctrl+letter, per the convention
		// the corpus's decoders (tooey, bubbletea) fall back to.
		return KeyEvent{Name: string(rune(b + 0x60)), Ctrl: true, Sequence: string(b)}, 1
	default:
		r, size := decodeRune(data)
		return KeyEvent{Name: string(r), Sequence: string(data[:size])}, size
	}
}

// legacyCSI recognises the classic forms used when the kitty parser is
// disabled or declines: ESC[A..D, ESC[H, ESC[F, ESC[Z.
func legacyCSI(data []byte) (KeyEvent, int, bool) {
	if len(data) == 0 {
		return KeyEvent{}, 0, false
	}
	switch data[0] {
	case 'A':
		return KeyEvent{Name: "up"}, 1, true
	case 'B':
		return KeyEvent{Name: "down"}, 1, true
	case 'C':
		return KeyEvent{Name: "right"}, 1, true
	case 'D':
		return KeyEvent{Name: "left"}, 1, true
	case 'H':
		return KeyEvent{Name: "home"}, 1, true
	case 'F':
		return KeyEvent{Name: "end"}, 1, true
	case 'Z':
		return KeyEvent{Name: "tab", Shift: true}, 1, true
	}
	return KeyEvent{}, 0, false
}

// skipCSI finds the end of an unrecognised CSI sequence (after "ESC[") and
// returns how many bytes to skip including the final byte. CSI parameter
// bytes are 0x30-0x3F, intermediate bytes 0x20-0x2F, the final byte
// 0x40-0x7E. Returns 0 if no final byte is present yet (incomplete).
func skipCSI(data []byte) int {
	for j := 0; j < len(data); j++ {
		if b := data[j]; b >= 0x40 && b <= 0x7e {
			return j + 1
		}
	}
	return 0
}

// decodeRune decodes one UTF-8 rune from the front of data, falling back to
// a single byte when malformed.
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
		if data[i]&0xC0 != 0x80 {
			return rune(b), 1
		}
		r = r<<6 | rune(data[i]&0x3F)
	}
	return r, size
}
