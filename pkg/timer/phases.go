package timer

import "time"

// derive fills every undefined phase whose inputs are now present. Defined
// phases are never revised, so a phase reflects the inputs available when it
// first became computable.
func derive(r *Record) {
	p := &r.Phases

	if p.Wait == nil && !r.Socket.IsZero() {
		p.Wait = span(r.Start, r.Socket)
	}

	if p.DNS == nil && !r.Lookup.IsZero() && !r.Socket.IsZero() {
		p.DNS = span(r.Socket, r.Lookup)
	}

	if p.TCP == nil && !r.Connect.IsZero() {
		if from := first(r.Lookup, r.Socket); !from.IsZero() {
			p.TCP = span(from, r.Connect)
		}
	}

	if p.TLS == nil && !r.SecureConnect.IsZero() && !r.Connect.IsZero() {
		p.TLS = span(r.Connect, r.SecureConnect)
	}

	// A request instrumented after its body was written may see its socket
	// only later; such a request has no upload phase.
	if p.Request == nil && !r.Upload.IsZero() {
		if from := first(r.SecureConnect, r.Connect, r.Socket); !from.IsZero() && !from.After(r.Upload) {
			p.Request = span(from, r.Upload)
		}
	}

	if p.FirstByte == nil && !r.Response.IsZero() && !r.Upload.IsZero() {
		p.FirstByte = span(r.Upload, r.Response)
	}

	if p.Download == nil && !r.End.IsZero() && !r.Response.IsZero() {
		p.Download = span(r.Response, r.End)
	}

	if p.Total == nil {
		if end := r.Finish(); !end.IsZero() {
			p.Total = span(r.Start, end)
		}
	}
}

func span(from, to time.Time) *time.Duration {
	d := to.Sub(from)
	return &d
}

// first returns the first non-zero time.
func first(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
