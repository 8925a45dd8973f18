package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/spf13/cobra"

	"github.com/joeabbey/httptimer/internal/aws"
	"github.com/joeabbey/httptimer/internal/probe"
	"github.com/joeabbey/httptimer/internal/report"
	"github.com/joeabbey/httptimer/pkg/httptimer"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live table of AWS region latency",
	Long: `Watch fills a terminal table with the time to first byte of every probe
to each AWS region as results arrive, then ranks the regions by average.
Press r to run again and q to quit. The fastest region is printed on exit.

Example:
  httptimer watch -n 5
  httptimer watch --regions us-east-1,us-west-2,eu-west-1`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

const maxConcurrent = 64

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntP("iterations", "n", 10, "number of requests per region")
	watchCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout, including the body")
	watchCmd.Flags().StringSlice("regions", nil, "regions to probe (default all)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	regions, err := aws.Select(cfg.Regions)
	if err != nil {
		return err
	}

	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize termui: %w", err)
	}

	client := &http.Client{Transport: httptimer.New(
		httptimer.WithTimeout(5*time.Second, cfg.Timeout),
	)}
	runner := &probe.Runner{Client: client, Method: http.MethodGet, Timeout: cfg.Timeout}

	fastest := findNearest(cmd.Context(), runner, regions, cfg.Iterations)

	uiEvents := ui.PollEvents()
	for done := false; !done; {
		e := <-uiEvents
		switch e.ID {
		case "r":
			fastest = findNearest(cmd.Context(), runner, regions, cfg.Iterations)
		case "q", "<C-c>":
			done = true
		}
	}
	ui.Close()

	fmt.Fprintln(stdout, fastest)
	return nil
}

// findNearest probes every region, rendering each result as it lands, and
// returns the ID of the region with the lowest average.
func findNearest(ctx context.Context, runner *probe.Runner, regions []aws.Region, iterations int) string {
	sem := make(chan struct{}, maxConcurrent)
	var mu sync.Mutex
	var wg sync.WaitGroup

	board := newBoard(regions, iterations)
	board.table.SetRect(2, 2, (iterations*8)+27, len(regions)*2+3)
	board.table.TextStyle = ui.NewStyle(ui.ColorWhite)
	board.table.TextAlignment = ui.AlignCenter
	ui.Render(board.table)

	for row, region := range regions {
		for iter := 0; iter < iterations; iter++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(row, iter int, endpoint string) {
				defer wg.Done()
				defer func() { <-sem }()

				s := runner.Once(ctx, endpoint, iter)
				mu.Lock()
				board.set(row, iter, s)
				ui.Render(board.table)
				mu.Unlock()
			}(row, iter, region.Endpoint)
		}
	}
	wg.Wait()

	board.finish()
	ui.Render(board.table)
	return board.fastest()
}

// board is the region-by-iteration table. Cells hold time to first byte.
type board struct {
	table   *widgets.Table
	regions []aws.Region
	samples [][]report.Sample
}

func newBoard(regions []aws.Region, iterations int) *board {
	b := &board{
		table:   widgets.NewTable(),
		regions: regions,
		samples: make([][]report.Sample, len(regions)),
	}
	b.table.ColumnWidths = []int{15, 9}
	header := []string{"Region", "avg"}
	for i := 0; i < iterations; i++ {
		header = append(header, strconv.Itoa(i+1))
		b.table.ColumnWidths = append(b.table.ColumnWidths, 8)
	}
	b.table.Rows = [][]string{header}

	for i, r := range regions {
		row := make([]string, iterations+2)
		row[0] = r.ID
		b.table.Rows = append(b.table.Rows, row)
		b.samples[i] = make([]report.Sample, iterations)
	}
	return b
}

func (b *board) set(row, iter int, s report.Sample) {
	b.samples[row][iter] = s
	b.table.Rows[row+1][iter+2] = cell(s)
}

// cell renders a sample's time to first byte, or ??? when it failed.
func cell(s report.Sample) string {
	ttfb, ok := timeToFirstByte(s)
	if !ok {
		return "???"
	}
	return ttfb.Truncate(time.Millisecond).String()
}

// timeToFirstByte measures from the start of the exchange to the response,
// which covers every connection phase of a fresh connection.
func timeToFirstByte(s report.Sample) (time.Duration, bool) {
	if !s.OK() || s.Record.Response.IsZero() {
		return 0, false
	}
	return s.Record.Response.Sub(s.Record.Start), true
}

// finish fills in averages, sorts regions fastest first and colours them.
func (b *board) finish() {
	averages := make([]time.Duration, len(b.regions))
	valid := make([]bool, len(b.regions))
	for i, samples := range b.samples {
		var sum time.Duration
		var n int
		for _, s := range samples {
			if d, ok := timeToFirstByte(s); ok {
				sum += d
				n++
			}
		}
		if n == 0 {
			b.table.Rows[i+1][1] = "???"
			continue
		}
		averages[i] = sum / time.Duration(n)
		valid[i] = true
		b.table.Rows[i+1][1] = averages[i].Truncate(time.Millisecond).String()
	}

	order := make([]int, len(b.regions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, c := order[i], order[j]
		if valid[a] != valid[c] {
			return valid[a]
		}
		return averages[a] < averages[c]
	})

	rows := [][]string{b.table.Rows[0]}
	regions := make([]aws.Region, len(order))
	samples := make([][]report.Sample, len(order))
	b.table.RowStyles = make(map[int]ui.Style)
	for pos, i := range order {
		rows = append(rows, b.table.Rows[i+1])
		regions[pos] = b.regions[i]
		samples[pos] = b.samples[i]
		if valid[i] {
			b.table.RowStyles[pos+1] = ui.NewStyle(latencyColor(averages[i]))
		}
	}
	b.table.Rows = rows
	b.regions = regions
	b.samples = samples
}

// fastest returns the top region's ID, or "" when every probe failed.
func (b *board) fastest() string {
	if len(b.regions) == 0 || b.table.Rows[1][1] == "???" {
		return ""
	}
	return b.regions[0].ID
}

func latencyColor(avg time.Duration) ui.Color {
	switch {
	case avg < 100*time.Millisecond:
		return ui.ColorGreen
	case avg < 250*time.Millisecond:
		return ui.ColorYellow
	default:
		return ui.ColorRed
	}
}
