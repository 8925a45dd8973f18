// Package httptimer is an http.RoundTripper that records a precise timeline
// for every request it carries: socket assignment, DNS resolution, connection
// and TLS establishment, request upload, first response byte, and the end or
// failure of the response body.
//
// The transport translates net/http/httptrace callbacks into lifecycle
// signals and hands the exchange to timer.Instrument, so the same phase
// derivation applies to HTTP clients and to any other lifecycle.Emitter.
//
// Basic usage:
//
//	client := &http.Client{Transport: httptimer.New()}
//
//	resp, err := client.Get("https://example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	io.Copy(io.Discard, resp.Body)
//	resp.Body.Close()
//
//	rec := httptimer.ResponseTimings(resp).Snapshot()
//	fmt.Println(rec) // total=… wait=… dns=… tcp=… tls=… request=… firstByte=… download=…
//
// Timings are complete once the response body has been read to EOF. Closing
// the body early records ErrBodyClosed as the failure.
//
// Configuration options are available through the functional options pattern:
//
//	transport := httptimer.New(
//	    httptimer.WithTimeout(5*time.Second, 30*time.Second),
//	    httptimer.WithKeepAlives(false),
//	    httptimer.WithPrometheus(prometheusConfig),
//	    httptimer.WithSimpleOpenTelemetry(tracer),
//	    httptimer.WithLogger(logger),
//	)
//
// Prometheus, OpenTelemetry and log output are Reporters: each is told when
// an exchange starts and receives its Outcome once the timings are final.
// Custom reporters can be added with WithReporter.
package httptimer
