package timer

import (
	"net/http"
	"runtime"
	"testing"
	"time"

	"github.com/joeabbey/httptimer/pkg/lifecycle"
)

type message struct {
	body []byte
	next *message
}

// TestRegistryRegisterLookup verifies associations and overwrites.
func TestRegistryRegisterLookup(t *testing.T) {
	reg := NewRegistry()
	obj := &message{body: []byte("x")}
	first := newTimings(time.Now())
	second := newTimings(time.Now())

	h := lifecycle.HandleOf(obj)
	reg.Register(h, first)
	if got, ok := reg.Lookup(h); !ok || got != first {
		t.Fatal("Expected the registered record")
	}

	reg.Register(h, second)
	if got, _ := reg.Lookup(h); got != second {
		t.Error("Expected re-registration to overwrite")
	}

	if _, ok := reg.Lookup(lifecycle.HandleOf(&message{})); ok {
		t.Error("Expected no record for an untracked object")
	}
	if _, ok := reg.Lookup(lifecycle.Handle{}); ok {
		t.Error("Expected no record for the zero handle")
	}

	reg.Register(lifecycle.Handle{}, first)
	if reg.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", reg.Len())
	}
	runtime.KeepAlive(obj)
}

// TestTrackForgetsCollectedObjects verifies entries do not outlive their object.
func TestTrackForgetsCollectedObjects(t *testing.T) {
	reg := NewRegistry()
	func() {
		obj := &message{body: make([]byte, 64)}
		Track(reg, obj, newTimings(time.Now()))
		if _, ok := Find(reg, obj); !ok {
			t.Fatal("Expected tracked object to be found")
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reg.Len() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if n := reg.Len(); n != 0 {
		t.Errorf("Expected entry to be forgotten after collection, %d remain", n)
	}
}

// TestRegistryPrune verifies dead handles registered directly are swept.
func TestRegistryPrune(t *testing.T) {
	reg := NewRegistry()
	func() {
		for i := 0; i < pruneEvery-1; i++ {
			reg.Register(lifecycle.HandleOf(&message{body: make([]byte, 32)}), newTimings(time.Now()))
		}
	}()
	for i := 0; i < 5; i++ {
		runtime.GC()
	}

	keep := &message{body: []byte("keep")}
	reg.Register(lifecycle.HandleOf(keep), newTimings(time.Now()))

	if n := reg.Len(); n != 1 {
		t.Errorf("Expected only the live entry after pruning, got %d", n)
	}
	runtime.KeepAlive(keep)
}

// TestExtract verifies lookups from a request and its response.
func TestExtract(t *testing.T) {
	req := lifecycle.NewBus()
	resp := lifecycle.NewBus()
	timings := Instrument(req)

	if got := Extract(req); got != timings {
		t.Error("Expected Extract(request) to return the record")
	}
	if got := Extract(resp); got != nil {
		t.Error("Expected no record for the response before it is emitted")
	}

	req.Emit(lifecycle.Response, resp)

	if got := Extract(resp); got != timings {
		t.Error("Expected Extract(response) to return the same record")
	}
	if got := Extract(lifecycle.NewBus()); got != nil {
		t.Error("Expected nil for an untracked emitter")
	}
	if got := Extract(&message{}); got != nil {
		t.Error("Expected nil for an object that was never associated")
	}
	if got := Extract[message](nil); got != nil {
		t.Error("Expected nil for a nil pointer")
	}
}

// TestExtractTracked verifies Extract finds objects associated through Track.
func TestExtractTracked(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp := &http.Response{StatusCode: http.StatusOK, Request: req}
	timings := newTimings(time.Now())

	if got := Extract(req); got != nil {
		t.Error("Expected no record before tracking")
	}

	Track(Default, req, timings)
	Track(Default, resp, timings)

	if got := Extract(req); got != timings {
		t.Error("Expected Extract(request) to return the tracked record")
	}
	if got := Extract(resp); got != timings {
		t.Error("Expected Extract(response) to return the tracked record")
	}
}

// TestRegisterForgetsCollectedObjects verifies handles registered directly,
// such as an instrumented request's own handle, do not outlive their object.
func TestRegisterForgetsCollectedObjects(t *testing.T) {
	reg := NewRegistry()
	func() {
		req := lifecycle.NewBus()
		Instrument(req, WithRegistry(reg))
		if reg.Len() != 1 {
			t.Fatalf("Expected 1 entry, got %d", reg.Len())
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reg.Len() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if n := reg.Len(); n != 0 {
		t.Errorf("Expected entry to be forgotten after collection, %d remain", n)
	}
}
