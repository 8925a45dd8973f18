package timer

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// epoch anchors exported timestamps to the process monotonic clock.
var epoch = time.Now()

// Phases holds the durations derived from a Record. A nil field means the
// phase is undefined because its inputs have not been recorded.
type Phases struct {
	Wait      *time.Duration
	DNS       *time.Duration
	TCP       *time.Duration
	TLS       *time.Duration
	Request   *time.Duration
	FirstByte *time.Duration
	Download  *time.Duration
	Total     *time.Duration
}

// Sum adds up every defined phase except Total. For a completed exchange it
// equals Total.
func (p Phases) Sum() time.Duration {
	var sum time.Duration
	for _, d := range []*time.Duration{p.Wait, p.DNS, p.TCP, p.TLS, p.Request, p.FirstByte, p.Download} {
		if d != nil {
			sum += *d
		}
	}
	return sum
}

// Record is a point-in-time copy of the timestamps captured for one request.
// A zero time means the signal has not been observed.
type Record struct {
	Start         time.Time
	Socket        time.Time
	Lookup        time.Time
	Connect       time.Time
	SecureConnect time.Time
	Upload        time.Time
	Response      time.Time
	End           time.Time
	Error         time.Time

	// Cause is the error that moved the record to Error, if any.
	Cause error

	Phases Phases
}

// Terminal reports whether End or Error has been recorded.
func (r Record) Terminal() bool {
	return !r.End.IsZero() || !r.Error.IsZero()
}

// Finish returns the terminal timestamp, or the zero time.
func (r Record) Finish() time.Time {
	if !r.End.IsZero() {
		return r.End
	}
	return r.Error
}

type recordJSON struct {
	Start         *float64   `json:"start"`
	Socket        *float64   `json:"socket,omitempty"`
	Lookup        *float64   `json:"lookup,omitempty"`
	Connect       *float64   `json:"connect,omitempty"`
	SecureConnect *float64   `json:"secureConnect,omitempty"`
	Upload        *float64   `json:"upload,omitempty"`
	Response      *float64   `json:"response,omitempty"`
	End           *float64   `json:"end,omitempty"`
	Error         *float64   `json:"error,omitempty"`
	Phases        phasesJSON `json:"phases"`
}

type phasesJSON struct {
	Wait      *float64 `json:"wait,omitempty"`
	DNS       *float64 `json:"dns,omitempty"`
	TCP       *float64 `json:"tcp,omitempty"`
	TLS       *float64 `json:"tls,omitempty"`
	Request   *float64 `json:"request,omitempty"`
	FirstByte *float64 `json:"firstByte,omitempty"`
	Download  *float64 `json:"download,omitempty"`
	Total     *float64 `json:"total,omitempty"`
}

// MarshalJSON encodes timestamps as milliseconds on the process monotonic
// clock and phases as milliseconds. Unset fields are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Start:         stampMs(r.Start),
		Socket:        stampMs(r.Socket),
		Lookup:        stampMs(r.Lookup),
		Connect:       stampMs(r.Connect),
		SecureConnect: stampMs(r.SecureConnect),
		Upload:        stampMs(r.Upload),
		Response:      stampMs(r.Response),
		End:           stampMs(r.End),
		Error:         stampMs(r.Error),
		Phases: phasesJSON{
			Wait:      durationMs(r.Phases.Wait),
			DNS:       durationMs(r.Phases.DNS),
			TCP:       durationMs(r.Phases.TCP),
			TLS:       durationMs(r.Phases.TLS),
			Request:   durationMs(r.Phases.Request),
			FirstByte: durationMs(r.Phases.FirstByte),
			Download:  durationMs(r.Phases.Download),
			Total:     durationMs(r.Phases.Total),
		},
	})
}

// String returns a compact, human-readable summary of the defined phases.
func (r Record) String() string {
	var b strings.Builder
	if r.Phases.Total != nil {
		b.WriteString("total=" + r.Phases.Total.String())
	} else {
		b.WriteString("total=pending")
	}

	for _, p := range r.Phases.named() {
		if p.d == nil {
			continue
		}
		b.WriteString(" " + p.name + "=" + p.d.String())
	}

	if r.Cause != nil {
		b.WriteString(" error=" + r.Cause.Error())
	}
	return b.String()
}

// LogValue implements slog.LogValuer so records can be logged as a group.
func (r Record) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 10)
	for _, p := range r.Phases.named() {
		if p.d != nil {
			attrs = append(attrs, slog.Float64(p.name+"_ms", ms(*p.d)))
		}
	}
	if r.Phases.Total != nil {
		attrs = append(attrs, slog.Float64("total_ms", ms(*r.Phases.Total)))
	}
	if r.Cause != nil {
		attrs = append(attrs, slog.String("error", r.Cause.Error()))
	}
	return slog.GroupValue(attrs...)
}

// Each calls fn for every defined component phase in lifecycle order.
// Total is not included.
func (p Phases) Each(fn func(name string, d time.Duration)) {
	for _, np := range p.named() {
		if np.d != nil {
			fn(np.name, *np.d)
		}
	}
}

type namedPhase struct {
	name string
	d    *time.Duration
}

// named lists the component phases in lifecycle order, excluding Total.
func (p Phases) named() []namedPhase {
	return []namedPhase{
		{"wait", p.Wait},
		{"dns", p.DNS},
		{"tcp", p.TCP},
		{"tls", p.TLS},
		{"request", p.Request},
		{"firstByte", p.FirstByte},
		{"download", p.Download},
	}
}

func stampMs(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	v := ms(t.Sub(epoch))
	return &v
}

func durationMs(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	v := ms(*d)
	return &v
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
