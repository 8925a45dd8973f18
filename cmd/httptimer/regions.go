package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeabbey/httptimer/internal/aws"
	"github.com/joeabbey/httptimer/internal/probe"
	"github.com/joeabbey/httptimer/internal/report"
	"github.com/joeabbey/httptimer/pkg/httptimer"
)

// regionsCmd represents the regions command
var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Compare latency to AWS regions",
	Long: `Regions probes the EC2 ping endpoint of every AWS region (or those named
with --regions) and ranks them by average latency.

Example:
  httptimer regions
  httptimer regions -n 5 --regions us-east-1,eu-west-1 -o yaml`,
	Args: cobra.NoArgs,
	RunE: runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)

	regionsCmd.Flags().IntP("iterations", "n", 3, "number of requests per region")
	regionsCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout, including the body")
	regionsCmd.Flags().StringSlice("regions", nil, "regions to probe (default all)")
}

func runRegions(cmd *cobra.Command, _ []string) error {
	regions, err := aws.Select(cfg.Regions)
	if err != nil {
		return err
	}

	client := &http.Client{Transport: httptimer.New(
		httptimer.WithTimeout(5*time.Second, cfg.Timeout),
		httptimer.WithLogger(logger),
	)}

	if cfg.Output == report.FormatText {
		for _, r := range regions {
			fmt.Fprintf(stdout, "Testing %s (%s)...\n", r.ID, r.Name)
		}
	}
	results := probeRegions(cmd.Context(), client, regions)

	switch cfg.Output {
	case report.FormatJSON:
		return report.JSON(stdout, results)
	case report.FormatYAML:
		return report.YAML(stdout, results)
	case report.FormatShort:
		for _, r := range results {
			report.Short(stdout, r.Summary)
		}
		return nil
	default:
		return report.RegionTable(stdout, results)
	}
}

// probeRegions probes every region in parallel, requests within a region
// sequentially, and returns the results fastest first.
func probeRegions(ctx context.Context, client *http.Client, regions []aws.Region) []report.RegionResult {
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]report.RegionResult, 0, len(regions))

	for _, region := range regions {
		wg.Add(1)
		go func(r aws.Region) {
			defer wg.Done()

			runner := &probe.Runner{
				Client:      client,
				Method:      http.MethodGet,
				Iterations:  cfg.Iterations,
				Concurrency: 1,
				Timeout:     cfg.Timeout,
			}
			summary := report.Summarize(r.Endpoint, runner.Run(ctx, r.Endpoint))

			mu.Lock()
			results = append(results, report.RegionResult{Region: r, Summary: summary})
			mu.Unlock()
		}(region)
	}
	wg.Wait()

	report.SortRegions(results)
	return results
}
