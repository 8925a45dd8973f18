// Package timer records a precise timeline of an outbound request: when a
// socket was assigned, when DNS resolution completed, when the connection and
// any TLS handshake were established, when the body finished uploading, when
// the response arrived, and when it completed or failed.
//
// Instrument binds to anything that satisfies lifecycle.Emitter and returns a
// live *Timings that fills in as signals arrive:
//
//	timings := timer.Instrument(req)
//	// ... the request runs ...
//	<-timings.Done()
//	rec := timings.Snapshot()
//	fmt.Println(rec.Phases.Total, rec.Phases.FirstByte)
//
// Each timestamp is recorded the first time its signal fires and never
// overwritten. Phases are derived as soon as their inputs exist:
//
//	wait      socket - start
//	dns       lookup - socket
//	tcp       connect - lookup (connect - socket without a lookup)
//	tls       secureConnect - connect
//	request   upload - (secureConnect, connect or socket)
//	firstByte response - upload
//	download  end - response
//	total     (end or error) - start
//
// Once End or Error is recorded the record is terminal: every subscription
// made on the request, its socket and its response has been released and no
// further timestamps are captured.
//
// Records are registered in a weak-keyed Registry so that any holder of the
// request or its response can get the same record back with Extract.
package timer
