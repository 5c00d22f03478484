package ledger

import (
	"testing"

	"github.com/fedledger/fedledger/src/tx"
)

func TestWindowPush(t *testing.T) {
	w := NewWindow(2)

	a := &tx.Transaction{ID: "a"}
	b := &tx.Transaction{ID: "b"}
	c := &tx.Transaction{ID: "c"}

	if ev := w.Push(a); len(ev) != 0 {
		t.Fatalf("first push should evict nothing, not %v", ev)
	}
	w.Push(b)

	ev := w.Push(c)
	if len(ev) != 1 || ev[0] != a {
		t.Fatalf("third push should evict a, not %v", ev)
	}

	snap := w.Snapshot()
	if len(snap) != 2 || snap[0] != b || snap[1] != c {
		t.Fatalf("window should be [b c], not %v", snap)
	}

	if NewWindow(0).Size() != DefaultWindowSize {
		t.Fatalf("zero size should default to %d", DefaultWindowSize)
	}
}
