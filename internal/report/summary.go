// Package report aggregates probe samples and renders them as text, JSON or
// YAML.
package report

import (
	"sort"
	"time"

	"github.com/joeabbey/httptimer/internal/aws"
	"github.com/joeabbey/httptimer/pkg/timer"
)

// PhaseNames lists the component phases in lifecycle order.
var PhaseNames = []string{"wait", "dns", "tcp", "tls", "request", "firstByte", "download"}

// Sample holds the result of a single request.
type Sample struct {
	Iteration  int
	Target     string
	StatusCode int
	Err        string
	Record     timer.Record
}

// OK reports whether the request completed without error.
func (s Sample) OK() bool {
	return s.Err == "" && s.Record.Cause == nil
}

// Total returns the total phase, or zero when it is undefined.
func (s Sample) Total() time.Duration {
	if s.Record.Phases.Total == nil {
		return 0
	}
	return *s.Record.Phases.Total
}

// Summary holds aggregate statistics over the successful samples.
type Summary struct {
	URL        string
	Iterations int
	Successful int
	Failed     int
	Min        time.Duration
	Max        time.Duration
	Average    time.Duration
	Median     time.Duration
	P90        time.Duration
	P99        time.Duration
	// Phases holds the mean of each phase over the samples where it is defined.
	Phases  map[string]time.Duration
	Samples []Sample
}

// Summarize computes the statistics for samples taken against url.
func Summarize(url string, samples []Sample) Summary {
	summary := Summary{
		URL:        url,
		Iterations: len(samples),
		Phases:     make(map[string]time.Duration),
		Samples:    samples,
	}

	var successful []time.Duration
	sums := make(map[string]time.Duration)
	counts := make(map[string]int)
	for _, s := range samples {
		if !s.OK() {
			summary.Failed++
			continue
		}
		summary.Successful++
		successful = append(successful, s.Total())
		s.Record.Phases.Each(func(name string, d time.Duration) {
			sums[name] += d
			counts[name]++
		})
	}
	for name, sum := range sums {
		summary.Phases[name] = sum / time.Duration(counts[name])
	}

	if len(successful) == 0 {
		return summary
	}

	sort.Slice(successful, func(i, j int) bool {
		return successful[i] < successful[j]
	})

	summary.Min = successful[0]
	summary.Max = successful[len(successful)-1]

	var sum time.Duration
	for _, d := range successful {
		sum += d
	}
	summary.Average = sum / time.Duration(len(successful))

	if len(successful)%2 == 0 {
		summary.Median = (successful[len(successful)/2-1] + successful[len(successful)/2]) / 2
	} else {
		summary.Median = successful[len(successful)/2]
	}

	summary.P90 = percentile(successful, 0.9)
	summary.P99 = percentile(successful, 0.99)
	return summary
}

// percentile picks the nearest-rank value from sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// RegionResult pairs a region with the summary of its probes.
type RegionResult struct {
	Region  aws.Region
	Summary Summary
}

// SortRegions orders results by average latency, failed regions last.
func SortRegions(results []RegionResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Summary, results[j].Summary
		if (a.Successful > 0) != (b.Successful > 0) {
			return a.Successful > 0
		}
		return a.Average < b.Average
	})
}
