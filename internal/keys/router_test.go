package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect(r *Router) *[]KeyEvent {
	events := make([]KeyEvent, 0)
	r.Subscribe(func(ev KeyEvent) {
		events = append(events, ev)
	})
	return &events
}

func newTestRouter(cfg Config) *Router {
	return NewRouter(cfg)
}

// --- universal invariants ---

func TestBytePreservation_NoEscapePrefixes(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	input := "hello, world 123"
	r.HandleChunk([]byte(input))

	var got string
	for _, ev := range *events {
		got += ev.Sequence
	}
	require.Equal(t, input, got)
}

func TestKittyDisabled_NeverSetsKittyProtocolFlag(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: false})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[3~\x1b[5~abc"))

	for _, ev := range *events {
		require.False(t, ev.KittyProtocol)
	}
}

// --- concrete scenarios ---

func TestScenario_NumpadEnterCtrl(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[57414;5u"))

	require.Len(t, *events, 1)
	ev := (*events)[0]
	require.Equal(t, "return", ev.Name)
	require.True(t, ev.Ctrl)
	require.False(t, ev.Shift)
	require.False(t, ev.Meta)
	require.True(t, ev.KittyProtocol)
}

func TestScenario_DoubleDelete(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[3~\x1b[3~"))

	require.Len(t, *events, 2)
	require.Equal(t, "delete", (*events)[0].Name)
	require.Equal(t, "delete", (*events)[1].Name)
}

func TestScenario_DeleteThenPageUpConcatenated(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[3~\x1b[5~"))

	require.Len(t, *events, 2)
	require.Equal(t, "delete", (*events)[0].Name)
	require.Equal(t, "pageup", (*events)[1].Name)
}

func TestScenario_FragmentedPaste(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[200~partial"))
	r.HandleChunk([]byte(" content\x1b[201~"))

	require.Len(t, *events, 1)
	ev := (*events)[0]
	require.True(t, ev.Paste)
	require.Equal(t, "partial content", ev.Sequence)
}

func TestScenario_MixedStream(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("before\x1b[200~pasted\x1b[201~"))

	require.Len(t, *events, 7)
	want := []string{"b", "e", "f", "o", "r", "e"}
	for i, w := range want {
		require.Equal(t, w, (*events)[i].Name)
	}
	last := (*events)[6]
	require.True(t, last.Paste)
	require.Equal(t, "pasted", last.Sequence)
}

func TestScenario_DragHeuristic(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	for _, rec := range []Record{
		{Name: "'", Sequence: "'"},
		{Name: "p", Sequence: "p"},
		{Name: "a", Sequence: "a"},
		{Name: "t", Sequence: "t"},
		{Name: "h", Sequence: "h"},
	} {
		r.HandleRecord(rec)
	}

	require.Len(t, *events, 0, "no events before the quiet timer fires")

	require.Eventually(t, func() bool { return len(*events) == 1 }, time.Second, time.Millisecond)
	ev := (*events)[0]
	require.True(t, ev.Paste)
	require.Equal(t, "'path", ev.Sequence)
}

func TestScenario_CtrlCCancelsStuckBuffer(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[1;"))
	r.HandleRecord(Record{Name: "c", Ctrl: true, Sequence: "\x03"})
	r.HandleChunk([]byte("\x1b[3~"))

	require.Len(t, *events, 2)
	require.Equal(t, "c", (*events)[0].Name)
	require.True(t, (*events)[0].Ctrl)
	require.Equal(t, "delete", (*events)[1].Name)
}

func TestScenario_ShiftTabBothForms(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleChunk([]byte("\x1b[Z"))
	r.HandleChunk([]byte("\x1b[1;2Z"))

	require.Len(t, *events, 2)
	for _, ev := range *events {
		require.Equal(t, "tab", ev.Name)
		require.True(t, ev.Shift)
	}
}

// --- additional coverage ---

func TestKittyBufferOverflow_ClearsAndContinues(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true, DebugKeystrokeLogging: true})
	events := collect(r)

	// a long run of digit bytes that never terminates, forcing overflow
	long := "\x1b["
	for i := 0; i < 100; i++ {
		long += "9"
	}
	r.HandleChunk([]byte(long))
	r.HandleChunk([]byte("x"))

	require.Len(t, *events, 1)
	require.Equal(t, "x", (*events)[0].Name)
}

func TestPasteTakesPrecedenceOverDrag(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleRecord(Record{Name: "'", Sequence: "'"})
	r.HandleChunk([]byte("\x1b[200~pasted\x1b[201~"))

	require.Len(t, *events, 1)
	require.True(t, (*events)[0].Paste)
	require.Equal(t, "pasted", (*events)[0].Sequence)
}

func TestDragFlushesOnInterruptingEvent(t *testing.T) {
	r := newTestRouter(Config{KittyProtocolEnabled: true})
	events := collect(r)

	r.HandleRecord(Record{Name: "'", Sequence: "'"})
	r.HandleRecord(Record{Name: "p", Sequence: "p"})
	r.HandleRecord(Record{Name: "return", Sequence: "\r"})

	require.Len(t, *events, 3)
	require.Equal(t, "'", (*events)[0].Name)
	require.Equal(t, "p", (*events)[1].Name)
	require.Equal(t, "return", (*events)[2].Name)
	for _, ev := range *events {
		require.False(t, ev.Paste)
	}
}

func TestPassthroughMode_CoalescesBurstContainingCR(t *testing.T) {
	r := newTestRouter(Config{PasteWorkaround: true})
	events := collect(r)

	r.HandleChunk([]byte("\rrest of paste"))

	require.Eventually(t, func() bool { return len(*events) == 1 }, time.Second, time.Millisecond)
	require.True(t, (*events)[0].Paste)
	require.Equal(t, "\rrest of paste", (*events)[0].Sequence)
}

func TestPassthroughMode_PlainBurstEmitsIndividualKeys(t *testing.T) {
	r := newTestRouter(Config{PasteWorkaround: true})
	events := collect(r)

	r.HandleChunk([]byte("hi"))

	require.Eventually(t, func() bool { return len(*events) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, "h", (*events)[0].Name)
	require.Equal(t, "i", (*events)[1].Name)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	r := newTestRouter(Config{})
	var n int
	unsub := r.Subscribe(func(KeyEvent) { n++ })
	r.HandleRecord(Record{Name: "a", Sequence: "a"})
	unsub()
	r.HandleRecord(Record{Name: "b", Sequence: "b"})
	require.Equal(t, 1, n)
}

func TestClose_DiscardsWithoutFlushing(t *testing.T) {
	r := newTestRouter(Config{})
	events := collect(r)

	r.HandleRecord(Record{Name: "'", Sequence: "'"})
	r.Close()

	time.Sleep(150 * time.Millisecond)
	require.Len(t, *events, 0)
}
