// Package lifecycle defines the signals a request, its socket and its response
// emit while a network exchange progresses, and the small set of primitives
// used to observe them.
//
// Anything that satisfies Emitter can be instrumented. Bus is a ready-made,
// concurrency-safe implementation; adapters such as the httptimer transport
// create one per request and emit signals into it from transport callbacks.
//
// Subscriptions made with Once, PrependOnce or First fire at most once and
// detach themselves before the listener runs:
//
//	bus := lifecycle.NewBus()
//	cancel := lifecycle.First(bus, lifecycle.Error, func(p any) {
//	    log.Printf("failed: %v", p)
//	})
//	defer cancel()
//
// Handle gives objects a weak identity so side tables can refer to them
// without extending their lifetime.
package lifecycle
