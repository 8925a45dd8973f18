package lifecycle

import (
	"reflect"
	"sync"
	"testing"
)

// TestBusOrdering verifies observers run first, then prepended and appended listeners.
func TestBusOrdering(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.On(Error, func(any) { got = append(got, "on") })
	bus.Prepend(Error, func(any) { got = append(got, "prepend") })
	bus.Observe(Error, func(any) { got = append(got, "observe") })
	bus.Prepend(Error, func(any) { got = append(got, "late-prepend") })

	if !bus.Emit(Error, nil) {
		t.Fatal("Expected Emit to report subscribers")
	}

	want := []string{"observe", "late-prepend", "prepend", "on"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Got order %v, want %v", got, want)
	}
}

// TestBusEmitWithoutListeners verifies an unobserved signal is a no-op.
func TestBusEmitWithoutListeners(t *testing.T) {
	bus := NewBus()
	if bus.Emit(Response, "payload") {
		t.Error("Expected Emit to report no subscribers")
	}
}

// TestBusOff verifies subscriptions can be removed from either list.
func TestBusOff(t *testing.T) {
	bus := NewBus()
	calls := 0

	id := bus.On(End, func(any) { calls++ })
	obs := bus.Observe(End, func(any) { calls++ })
	if n := bus.ListenerCount(End); n != 2 {
		t.Fatalf("Expected 2 listeners, got %d", n)
	}

	bus.Off(End, id)
	bus.Off(End, obs)
	bus.Off(End, 999)

	if n := bus.ListenerCount(End); n != 0 {
		t.Errorf("Expected 0 listeners, got %d", n)
	}
	bus.Emit(End, nil)
	if calls != 0 {
		t.Errorf("Expected no calls after Off, got %d", calls)
	}
}

// TestBusRemoveDuringEmit verifies a listener removed mid-emission still sees that emission.
func TestBusRemoveDuringEmit(t *testing.T) {
	bus := NewBus()
	var second ID
	calls := 0

	bus.On(Finish, func(any) { bus.Off(Finish, second) })
	second = bus.On(Finish, func(any) { calls++ })

	bus.Emit(Finish, nil)
	if calls != 1 {
		t.Errorf("Expected snapshot delivery, got %d calls", calls)
	}

	bus.Emit(Finish, nil)
	if calls != 1 {
		t.Errorf("Expected removed listener to stay removed, got %d calls", calls)
	}
}

// TestBusPayload verifies the payload reaches listeners unchanged.
func TestBusPayload(t *testing.T) {
	bus := NewBus()
	var got any
	bus.On(Socket, func(p any) { got = p })

	bus.Emit(Socket, 42)
	if got != 42 {
		t.Errorf("Expected payload 42, got %v", got)
	}
}

// TestBusConcurrent exercises subscription and emission from many goroutines.
func TestBusConcurrent(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup
	var mu sync.Mutex
	calls := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := bus.On(Connect, func(any) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			bus.Emit(Connect, nil)
			bus.Off(Connect, id)
		}()
	}
	wg.Wait()

	if n := bus.ListenerCount(Connect); n != 0 {
		t.Errorf("Expected all listeners removed, got %d", n)
	}
	if calls < 50 {
		t.Errorf("Expected at least 50 deliveries, got %d", calls)
	}
}
