package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatShort = "short"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatShort}

// ms formats d as milliseconds with thousands separators, e.g. "1,234.50ms".
func ms(d time.Duration) string {
	return humanize.FormatFloat("#,###.##", millis(d)) + "ms"
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Progress writes one line for a completed sample.
func Progress(w io.Writer, s Sample) {
	if !s.OK() {
		fmt.Fprintf(w, "  #%d: ERROR: %s\n", s.Iteration+1, sampleError(s))
		return
	}
	fmt.Fprintf(w, "  #%d: %s (status: %d)\n", s.Iteration+1, ms(s.Total()), s.StatusCode)
}

// Text writes a human-readable summary. With details, every sample's phases
// are listed as well.
func Text(w io.Writer, summary Summary, details bool) error {
	fmt.Fprintf(w, "\n=== Summary for %s ===\n", summary.URL)
	fmt.Fprintf(w, "Iterations: %s (Success: %s, Failed: %s)\n",
		humanize.Comma(int64(summary.Iterations)),
		humanize.Comma(int64(summary.Successful)),
		humanize.Comma(int64(summary.Failed)))

	if summary.Successful == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nLatency Statistics:\n")
	table := tablewriter.NewWriter(w)
	table.Header("Min", "Max", "Average", "Median", "P90", "P99")
	if err := appendRow(table, "latency", ms(summary.Min), ms(summary.Max), ms(summary.Average), ms(summary.Median), ms(summary.P90), ms(summary.P99)); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render latency table: %w", err)
	}

	fmt.Fprintf(w, "\nAverage Phases:\n")
	phases := tablewriter.NewWriter(w)
	phases.Header("Phase", "Average")
	for _, name := range PhaseNames {
		if d, ok := summary.Phases[name]; ok {
			if err := appendRow(phases, "phase", name, ms(d)); err != nil {
				return err
			}
		}
	}
	if err := phases.Render(); err != nil {
		return fmt.Errorf("render phase table: %w", err)
	}

	if !details {
		return nil
	}

	fmt.Fprintf(w, "\nDetailed Results:\n")
	samples := tablewriter.NewWriter(w)
	samples.Header(append([]any{"#", "Status", "Total"}, anySlice(PhaseNames)...)...)
	for _, s := range summary.Samples {
		row := []any{s.Iteration + 1, status(s), phaseCell(s.Record.Phases.Total)}
		for _, name := range PhaseNames {
			row = append(row, phaseCell(phaseByName(s, name)))
		}
		if err := appendRow(samples, "sample", row...); err != nil {
			return err
		}
	}
	if err := samples.Render(); err != nil {
		return fmt.Errorf("render sample table: %w", err)
	}
	return nil
}

// Short writes a one-line summary.
func Short(w io.Writer, summary Summary) {
	if summary.Successful == 0 {
		fmt.Fprintf(w, "%s: all requests failed (%d/%d)\n", summary.URL, summary.Failed, summary.Iterations)
		return
	}
	fmt.Fprintf(w, "%s: avg=%s min=%s max=%s p90=%s p99=%s (success=%d/%d)\n",
		summary.URL,
		ms(summary.Average),
		ms(summary.Min),
		ms(summary.Max),
		ms(summary.P90),
		ms(summary.P99),
		summary.Successful,
		summary.Iterations)
}

// RegionTable writes one row per region, in the order given.
func RegionTable(w io.Writer, results []RegionResult) error {
	fmt.Fprintln(w, "\n=== AWS Region Latency Test Results ===")
	table := tablewriter.NewWriter(w)
	table.Header("Region", "Name", "Average", "Min", "Max", "First Byte")
	for _, r := range results {
		if r.Summary.Successful == 0 {
			if err := appendRow(table, "region", r.Region.ID, r.Region.Name, "FAILED", "-", "-", "-"); err != nil {
				return err
			}
			continue
		}
		firstByte := "-"
		if d, ok := r.Summary.Phases["firstByte"]; ok {
			firstByte = ms(d)
		}
		if err := appendRow(table, "region", r.Region.ID, r.Region.Name,
			ms(r.Summary.Average), ms(r.Summary.Min), ms(r.Summary.Max), firstByte); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render region table: %w", err)
	}

	if len(results) > 0 && results[0].Summary.Successful > 0 {
		fmt.Fprintf(w, "\nFastest region: %s (%s) with average latency of %s\n",
			results[0].Region.ID,
			results[0].Region.Name,
			ms(results[0].Summary.Average))
	}
	return nil
}

// JSON writes v as indented JSON. Summaries and region results are converted
// to their document form first.
func JSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document(v)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes v as YAML, using the same document form as JSON.
func YAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document(v)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return encoder.Close()
}

// rowAppender is the part of *tablewriter.Table that adds rows.
type rowAppender interface {
	Append(rows ...any) error
}

func appendRow(t rowAppender, table string, cells ...any) error {
	if err := t.Append(cells...); err != nil {
		return fmt.Errorf("append %s row: %w", table, err)
	}
	return nil
}

func status(s Sample) string {
	if !s.OK() {
		return "ERROR"
	}
	return fmt.Sprint(s.StatusCode)
}

func sampleError(s Sample) string {
	if s.Err != "" {
		return s.Err
	}
	if s.Record.Cause != nil {
		return s.Record.Cause.Error()
	}
	return ""
}

func phaseCell(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return ms(*d)
}

func phaseByName(s Sample, name string) *time.Duration {
	var found *time.Duration
	s.Record.Phases.Each(func(n string, d time.Duration) {
		if n == name {
			found = &d
		}
	})
	return found
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
