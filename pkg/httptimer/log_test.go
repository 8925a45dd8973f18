package httptimer

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("Invalid log line %q: %v", line, err)
		}
		lines = append(lines, m)
	}
	return lines
}

// TestLogReporter verifies one structured record per exchange.
func TestLogReporter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(okHandler))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	get(t, New(WithLogger(logger)), server.URL+"/logged")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %s", len(lines), buf.String())
	}
	line := lines[0]

	if line["msg"] != "http request completed" || line["level"] != "INFO" {
		t.Errorf("Unexpected record: %v", line)
	}
	if _, err := uuid.Parse(line["request_id"].(string)); err != nil {
		t.Errorf("Expected a uuid request id, got %v", line["request_id"])
	}
	if !strings.HasSuffix(line["url"].(string), "/logged") || line["status"] != float64(200) {
		t.Errorf("Unexpected url or status: %v", line)
	}
	timings, ok := line["timings"].(map[string]any)
	if !ok {
		t.Fatalf("Expected timings group, got %v", line["timings"])
	}
	if _, ok := timings["total_ms"]; !ok {
		t.Errorf("Expected total_ms in timings, got %v", timings)
	}
}

// TestLogReporterError verifies failures are logged at warn level.
func TestLogReporterError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	resp, err := (&http.Client{Transport: New(WithLogger(logger))}).Get("http://" + addr)
	if err == nil {
		resp.Body.Close()
		t.Fatal("Expected connection error")
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected start and completion lines, got %d", len(lines))
	}
	if lines[0]["level"] != "DEBUG" || lines[1]["level"] != "WARN" {
		t.Errorf("Unexpected levels: %v, %v", lines[0]["level"], lines[1]["level"])
	}
	if lines[0]["request_id"] != lines[1]["request_id"] {
		t.Error("Expected both lines to share the request id")
	}
	if lines[1]["error"] == nil {
		t.Error("Expected error attribute")
	}
}
