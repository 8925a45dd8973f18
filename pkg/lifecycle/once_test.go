package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestOnceFiresOnce verifies a one-shot listener detaches after its first delivery.
func TestOnceFiresOnce(t *testing.T) {
	bus := NewBus()
	calls := 0
	Once(bus, Lookup, func(any) { calls++ })

	bus.Emit(Lookup, nil)
	bus.Emit(Lookup, nil)

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if n := bus.ListenerCount(Lookup); n != 0 {
		t.Errorf("Expected listener to detach, %d remain", n)
	}
}

// TestOnceCancel verifies cancel before firing removes the listener.
func TestOnceCancel(t *testing.T) {
	bus := NewBus()
	calls := 0
	cancel := Once(bus, Connect, func(any) { calls++ })

	cancel()
	cancel()
	bus.Emit(Connect, nil)

	if calls != 0 {
		t.Errorf("Expected no calls after cancel, got %d", calls)
	}
	if n := bus.ListenerCount(Connect); n != 0 {
		t.Errorf("Expected no listeners, got %d", n)
	}
}

// TestPrependOnceOrder verifies the prepended one-shot listener runs before existing ones.
func TestPrependOnceOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.On(Response, func(any) { order = append(order, "consumer") })
	PrependOnce(bus, Response, func(any) { order = append(order, "timer") })

	bus.Emit(Response, nil)

	if len(order) != 2 || order[0] != "timer" {
		t.Errorf("Expected timer first, got %v", order)
	}
}

// plainEmitter hides the Observer capability of a Bus.
type plainEmitter struct {
	bus *Bus
}

func (p plainEmitter) On(sig Signal, fn Listener) ID      { return p.bus.On(sig, fn) }
func (p plainEmitter) Prepend(sig Signal, fn Listener) ID { return p.bus.Prepend(sig, fn) }
func (p plainEmitter) Off(sig Signal, id ID)              { p.bus.Off(sig, id) }

// TestFirst verifies First uses observers when available and prepends otherwise.
func TestFirst(t *testing.T) {
	t.Run("observer", func(t *testing.T) {
		bus := NewBus()
		var order []string
		First(bus, Error, func(any) { order = append(order, "timer") })
		PrependOnce(bus, Error, func(any) { order = append(order, "consumer") })

		bus.Emit(Error, nil)
		if len(order) != 2 || order[0] != "timer" {
			t.Errorf("Expected timer ahead of a later prepend, got %v", order)
		}
	})

	t.Run("prepend fallback", func(t *testing.T) {
		bus := NewBus()
		var order []string
		bus.On(Error, func(any) { order = append(order, "consumer") })
		First(plainEmitter{bus}, Error, func(any) { order = append(order, "timer") })

		bus.Emit(Error, nil)
		if len(order) != 2 || order[0] != "timer" {
			t.Errorf("Expected timer ahead of existing listener, got %v", order)
		}
	})
}

// TestOnceConcurrentEmit verifies the listener fires once under concurrent emission.
func TestOnceConcurrentEmit(t *testing.T) {
	bus := NewBus()
	var calls int32
	Once(bus, End, func(any) { atomic.AddInt32(&calls, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(End, nil)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 call, got %d", got)
	}
}
