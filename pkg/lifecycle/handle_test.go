package lifecycle

import (
	"runtime"
	"testing"
	"time"
)

type tracked struct {
	name string
	next *tracked
}

// TestHandleEquality verifies handles compare by pointer identity.
func TestHandleEquality(t *testing.T) {
	a := &tracked{name: "a"}
	b := &tracked{name: "b"}

	if HandleOf(a) != HandleOf(a) {
		t.Error("Expected handles of the same pointer to be equal")
	}
	if HandleOf(a) == HandleOf(b) {
		t.Error("Expected handles of different pointers to differ")
	}

	m := map[Handle]string{HandleOf(a): "a"}
	if m[HandleOf(a)] != "a" {
		t.Error("Expected handle to work as a map key")
	}
}

// TestHandleNil verifies the zero handle.
func TestHandleNil(t *testing.T) {
	var p *tracked
	h := HandleOf(p)
	if h.Valid() || h.Alive() {
		t.Error("Expected nil pointer to yield an invalid handle")
	}
	if h != (Handle{}) {
		t.Error("Expected nil pointer to yield the zero handle")
	}
}

// TestHandleDoesNotRetain verifies a handle does not keep its object alive.
func TestHandleDoesNotRetain(t *testing.T) {
	h := func() Handle {
		obj := &tracked{name: "temporary"}
		obj.next = &tracked{name: "child"}
		return HandleOf(obj)
	}()

	for i := 0; i < 10 && h.Alive(); i++ {
		runtime.GC()
	}
	if h.Alive() {
		t.Error("Expected object to be collected")
	}
}

// TestHandleFor verifies Trackable lookup.
func TestHandleFor(t *testing.T) {
	bus := NewBus()
	h, ok := HandleFor(bus)
	if !ok || h != HandleOf(bus) {
		t.Error("Expected Bus to be trackable by its own handle")
	}
	if _, ok := HandleFor("not trackable"); ok {
		t.Error("Expected a string not to be trackable")
	}
	runtime.KeepAlive(bus)
}

// TestHandleOnCollect verifies the callback runs after collection with the
// object's handle.
func TestHandleOnCollect(t *testing.T) {
	collected := make(chan Handle, 1)
	var h Handle
	func() {
		obj := &tracked{name: "temporary"}
		h = HandleOf(obj)
		if !h.OnCollect(func(got Handle) { collected <- got }) {
			t.Fatal("Expected OnCollect to accept a live object")
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		runtime.GC()
		select {
		case got := <-collected:
			if got != h {
				t.Error("Expected the callback to receive the collected handle")
			}
			return
		case <-deadline:
			t.Fatal("Expected the callback to run after collection")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestHandleOnCollectInvalid verifies the zero handle rejects callbacks.
func TestHandleOnCollectInvalid(t *testing.T) {
	if (Handle{}).OnCollect(func(Handle) {}) {
		t.Error("Expected the zero handle to reject OnCollect")
	}
}

// TestConnStateString verifies state names.
func TestConnStateString(t *testing.T) {
	tests := map[ConnState]string{
		StateResolving:   "resolving",
		StateConnecting:  "connecting",
		StateHandshaking: "handshaking",
		StateReady:       "ready",
		ConnState(42):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("ConnState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
