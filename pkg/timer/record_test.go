package timer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func completeRecord() Record {
	t0 := epoch.Add(time.Second)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }
	rec := Record{
		Start: t0, Socket: at(1), Lookup: at(3), Connect: at(6),
		SecureConnect: at(10), Upload: at(11), Response: at(20), End: at(25),
	}
	derive(&rec)
	return rec
}

func TestRecordJSON(t *testing.T) {
	data, err := json.Marshal(completeRecord())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"start", "socket", "lookup", "connect", "secureConnect", "upload", "response", "end", "phases"} {
		if _, ok := got[key]; !ok {
			t.Errorf("Expected key %q in %s", key, data)
		}
	}
	if _, ok := got["error"]; ok {
		t.Errorf("Expected no error key, got %s", data)
	}
	if got["start"].(float64) != 1000 {
		t.Errorf("Expected start 1000ms after epoch, got %v", got["start"])
	}

	phases := got["phases"].(map[string]any)
	want := map[string]float64{
		"wait": 1, "dns": 2, "tcp": 3, "tls": 4,
		"request": 1, "firstByte": 9, "download": 5, "total": 25,
	}
	for k, v := range want {
		if phases[k] != v {
			t.Errorf("Expected phases.%s = %v, got %v", k, v, phases[k])
		}
	}
}

func TestRecordJSONPartial(t *testing.T) {
	rec := Record{Start: epoch}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"start":0,"phases":{}}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestRecordString(t *testing.T) {
	s := completeRecord().String()
	if !strings.HasPrefix(s, "total=25ms") {
		t.Errorf("Expected total first, got %q", s)
	}
	for _, part := range []string{"wait=1ms", "dns=2ms", "tls=4ms", "firstByte=9ms", "download=5ms"} {
		if !strings.Contains(s, part) {
			t.Errorf("Expected %q in %q", part, s)
		}
	}

	pending := Record{Start: time.Now(), Cause: errors.New("boom")}
	if got := pending.String(); got != "total=pending error=boom" {
		t.Errorf("Unexpected string for pending record: %q", got)
	}
}

func TestRecordLogValue(t *testing.T) {
	rec := completeRecord()
	rec.Cause = errors.New("reset")

	v := rec.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("Expected group value, got %v", v.Kind())
	}

	attrs := make(map[string]slog.Value)
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value
	}
	if attrs["total_ms"].Float64() != 25 {
		t.Errorf("Expected total_ms 25, got %v", attrs["total_ms"])
	}
	if attrs["firstByte_ms"].Float64() != 9 {
		t.Errorf("Expected firstByte_ms 9, got %v", attrs["firstByte_ms"])
	}
	if attrs["error"].String() != "reset" {
		t.Errorf("Expected error attr, got %v", attrs["error"])
	}
}

func TestRecordFinish(t *testing.T) {
	t0 := time.Now()
	if !(Record{Start: t0}).Finish().IsZero() {
		t.Error("Expected zero finish for a running record")
	}
	failed := Record{Start: t0, Error: t0.Add(time.Second)}
	if !failed.Terminal() || !failed.Finish().Equal(t0.Add(time.Second)) {
		t.Error("Expected error time as finish")
	}
}
