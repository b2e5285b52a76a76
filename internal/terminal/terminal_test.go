package terminal

import "testing"

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantName string
		wantCtrl bool
		wantN    int
	}{
		{"return", []byte{'\r'}, "return", false, 1},
		{"tab", []byte{'\t'}, "tab", false, 1},
		{"backspace_del", []byte{0x7f}, "backspace", false, 1},
		{"backspace_bs", []byte{'\b'}, "backspace", false, 1},
		{"ctrl_c", []byte{0x03}, "c", true, 1},
		{"ctrl_a", []byte{0x01}, "a", true, 1},
		{"letter", []byte{'x'}, "x", false, 1},
		{"digit", []byte{'7'}, "7", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, n := decodeRecord(tt.input)
			if rec.Name != tt.wantName {
				t.Errorf("Name: got %q, want %q", rec.Name, tt.wantName)
			}
			if rec.Ctrl != tt.wantCtrl {
				t.Errorf("Ctrl: got %v, want %v", rec.Ctrl, tt.wantCtrl)
			}
			if n != tt.wantN {
				t.Errorf("consumed: got %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestDecodeRecord_MultibyteRune(t *testing.T) {
	// "é" is 2 bytes in UTF-8.
	data := []byte("é")
	rec, n := decodeRecord(data)
	if n != 2 {
		t.Fatalf("consumed: got %d, want 2", n)
	}
	if rec.Sequence != "é" {
		t.Errorf("Sequence: got %q, want %q", rec.Sequence, "é")
	}
}

func TestDispatch_PlainBytesBecomeRecords(t *testing.T) {
	term := &Terminal{}

	var records []Record
	var chunks [][]byte
	opts := Options{
		OnRecord: func(r Record) { records = append(records, r) },
		OnChunk:  func(c []byte) { chunks = append(chunks, append([]byte(nil), c...)) },
	}

	term.dispatch([]byte("ab"), opts)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Name != "a" || records[1].Name != "b" {
		t.Errorf("unexpected record names: %+v", records)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no raw chunks, got %d", len(chunks))
	}
}

func TestDispatch_EscStopsRecordDecodingForRestOfChunk(t *testing.T) {
	term := &Terminal{}

	var records []Record
	var chunks [][]byte
	opts := Options{
		OnRecord: func(r Record) { records = append(records, r) },
		OnChunk:  func(c []byte) { chunks = append(chunks, append([]byte(nil), c...)) },
	}

	term.dispatch([]byte("a\x1b[3~"), opts)

	if len(records) != 1 || records[0].Name != "a" {
		t.Fatalf("expected one leading record 'a', got %+v", records)
	}
	if len(chunks) != 1 || string(chunks[0]) != "\x1b[3~" {
		t.Fatalf("expected the escape run forwarded raw, got %+v", chunks)
	}
}

func TestDispatch_PasteWorkaroundBypassesRecords(t *testing.T) {
	term := &Terminal{}

	var records []Record
	var chunks [][]byte
	opts := Options{
		PasteWorkaround: true,
		OnRecord:        func(r Record) { records = append(records, r) },
		OnChunk:         func(c []byte) { chunks = append(chunks, append([]byte(nil), c...)) },
	}

	term.dispatch([]byte("plain text"), opts)

	if len(records) != 0 {
		t.Errorf("expected no records in passthrough mode, got %d", len(records))
	}
	if len(chunks) != 1 || string(chunks[0]) != "plain text" {
		t.Fatalf("expected the whole chunk forwarded raw, got %+v", chunks)
	}
}
