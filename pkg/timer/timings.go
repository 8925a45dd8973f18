package timer

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/joeabbey/httptimer/pkg/lifecycle"
)

// Timings is the live timing record of one instrumented request. Only the
// recorder that created it mutates it; every exported method is read-only
// and safe for concurrent use.
type Timings struct {
	mu   sync.RWMutex
	rec  Record
	done chan struct{}
}

func newTimings(start time.Time) *Timings {
	return &Timings{
		rec:  Record{Start: start},
		done: make(chan struct{}),
	}
}

// Snapshot returns a copy of everything captured so far. A partially filled
// record is a valid intermediate state.
func (t *Timings) Snapshot() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rec
}

// Phases returns the phases derived so far.
func (t *Timings) Phases() Phases {
	return t.Snapshot().Phases
}

// Terminal reports whether the request has ended or failed.
func (t *Timings) Terminal() bool {
	return t.Snapshot().Terminal()
}

// Done returns a channel that is closed once End or Error is recorded.
func (t *Timings) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the record is terminal or the timeout elapses, and
// returns the latest snapshot.
func (t *Timings) Wait(timeout time.Duration) (Record, bool) {
	select {
	case <-t.done:
		return t.Snapshot(), true
	case <-time.After(timeout):
		return t.Snapshot(), false
	}
}

// MarshalJSON implements json.Marshaler.
func (t *Timings) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}

// String implements fmt.Stringer.
func (t *Timings) String() string {
	return t.Snapshot().String()
}

// LogValue implements slog.LogValuer.
func (t *Timings) LogValue() slog.Value {
	return t.Snapshot().LogValue()
}

// mark records sig at the given time unless it is already set or the record
// is terminal. It reports whether the timestamp was applied and whether the
// record became terminal as a result.
func (t *Timings) mark(sig lifecycle.Signal, at time.Time, cause error) (applied, terminal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rec.Terminal() {
		return false, false
	}

	field := t.field(sig)
	if field == nil || !field.IsZero() {
		return false, false
	}
	*field = at

	if sig == lifecycle.Error {
		t.rec.Cause = cause
	}
	derive(&t.rec)

	if t.rec.Terminal() {
		close(t.done)
		return true, true
	}
	return true, false
}

func (t *Timings) field(sig lifecycle.Signal) *time.Time {
	switch sig {
	case lifecycle.Socket:
		return &t.rec.Socket
	case lifecycle.Lookup:
		return &t.rec.Lookup
	case lifecycle.Connect:
		return &t.rec.Connect
	case lifecycle.SecureConnect:
		return &t.rec.SecureConnect
	case lifecycle.Finish:
		return &t.rec.Upload
	case lifecycle.Response:
		return &t.rec.Response
	case lifecycle.End:
		return &t.rec.End
	case lifecycle.Error:
		return &t.rec.Error
	default:
		return nil
	}
}
