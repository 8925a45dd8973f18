// Package probe sends repeated requests to a target through a timing
// transport and collects one report.Sample per request.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/joeabbey/httptimer/internal/report"
	"github.com/joeabbey/httptimer/pkg/httptimer"
	"github.com/joeabbey/httptimer/pkg/timer"
)

// Runner sends requests with a fixed method and concurrency.
type Runner struct {
	Client      *http.Client
	Method      string
	Iterations  int
	Concurrency int
	// Timeout bounds each request, including reading its body.
	Timeout time.Duration
	// OnSample, if set, is called as each request completes.
	OnSample func(report.Sample)
}

// Run probes url and returns the samples ordered by iteration.
func (r *Runner) Run(ctx context.Context, url string) []report.Sample {
	iterations := max(r.Iterations, 1)
	concurrency := max(r.Concurrency, 1)

	samples := make([]report.Sample, 0, iterations)
	samplesChan := make(chan report.Sample, iterations)

	// Use semaphore for concurrency control
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func(iteration int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			samplesChan <- r.Once(ctx, url, iteration)
		}(i)
	}

	go func() {
		wg.Wait()
		close(samplesChan)
	}()

	for s := range samplesChan {
		samples = append(samples, s)
		if r.OnSample != nil {
			r.OnSample(s)
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Iteration < samples[j].Iteration
	})
	return samples
}

// Once sends a single request and drains the response body.
func (r *Runner) Once(ctx context.Context, url string, iteration int) report.Sample {
	sample := report.Sample{Iteration: iteration, Target: url}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		sample.Err = fmt.Errorf("build request: %w", err).Error()
		return sample
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Transport: httptimer.New()}
	}

	resp, err := client.Do(req)
	if err != nil {
		sample.Err = err.Error()
		sample.Record = snapshot(httptimer.GetTimings(req))
		return sample
	}
	defer resp.Body.Close()

	sample.StatusCode = resp.StatusCode
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		sample.Err = fmt.Errorf("read body: %w", err).Error()
	}
	sample.Record = snapshot(httptimer.ResponseTimings(resp))
	return sample
}

func snapshot(t *timer.Timings) timer.Record {
	if t == nil {
		return timer.Record{}
	}
	return t.Snapshot()
}
