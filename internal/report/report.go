// Package report renders benchmark runs of the pool for the terminal.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

// Color helpers shared by the command output.
var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
)

// Result is one benchmark run at a fixed worker count.
type Result struct {
	Workers    int
	Tasks      int
	Failed     int
	TotalTime  time.Duration
	Throughput float64 // tasks per second
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Rank       int
}

// Summarize builds a Result from per-task latencies, which it sorts in place.
func Summarize(workers int, total time.Duration, latencies []time.Duration, failed int) Result {
	slices.Sort(latencies)
	p50, p95, p99 := Percentiles(latencies)

	r := Result{
		Workers:   workers,
		Tasks:     len(latencies),
		Failed:    failed,
		TotalTime: total,
		P50:       p50,
		P95:       p95,
		P99:       p99,
	}
	if total > 0 {
		r.Throughput = float64(len(latencies)) / total.Seconds()
	}
	return r
}

// Percentiles computes P50, P95, P99 percentiles from sorted latencies.
// The input slice must be sorted in ascending order.
// Returns 0 for all percentiles if the input slice is empty.
func Percentiles(sorted []time.Duration) (p50, p95, p99 time.Duration) {
	if len(sorted) == 0 {
		return 0, 0, 0
	}

	n := len(sorted)
	at := func(pct int) time.Duration {
		return sorted[min(n*pct/100, n-1)]
	}
	return at(50), at(95), at(99)
}

// Render ranks results by total time and writes them as a table.
func Render(w io.Writer, results []Result) error {
	if len(results) == 0 {
		return errors.New("no benchmark results to render")
	}

	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b Result) int {
		return cmp.Compare(a.TotalTime, b.TotalTime)
	})
	fastest := ranked[0].TotalTime

	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Workers", "Time", "Tasks/sec", "P50", "P95", "P99", "Failed", "vs Fastest")

	for i := range ranked {
		r := &ranked[i]
		r.Rank = i + 1
		if err := table.Append(
			rankIcon(r.Rank),
			fmt.Sprintf("%d", r.Workers),
			r.TotalTime.Round(time.Millisecond).String(),
			FormatNumber(int(r.Throughput)),
			FormatLatency(r.P50),
			FormatLatency(r.P95),
			FormatLatency(r.P99),
			failedCell(r.Failed),
			vsFastest(r.TotalTime, fastest, r.Rank),
		); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	return nil
}

// NewProgressBar returns a bar counting completed tasks on w.
func NewProgressBar(total int, w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// Header prints a boxed title.
func Header(w io.Writer, title string) {
	_, _ = Bold.Fprintln(w, "╔════════════════════════════════════════════════════════════╗")
	_, _ = Bold.Fprintf(w, "║       %-52s ║\n", title)
	_, _ = Bold.Fprintln(w, "╚════════════════════════════════════════════════════════════╝")
}

// FormatNumber formats an integer with comma separators
func FormatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var result strings.Builder
	if neg {
		result.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// FormatLatency formats a duration in the most appropriate unit
func FormatLatency(d time.Duration) string {
	ns := d.Nanoseconds()

	switch {
	case ns == 0:
		return "0"
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return trimUnit(float64(ns)/1_000, "µs", 1)
	case ns < 1_000_000_000:
		return trimUnit(float64(ns)/1_000_000, "ms", 2)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func trimUnit(v float64, unit string, prec int) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d%s", int64(v), unit)
	}
	return fmt.Sprintf("%.*f%s", prec, v, unit)
}

func rankIcon(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

func vsFastest(total, fastest time.Duration, rank int) string {
	if rank == 1 || fastest <= 0 {
		return "baseline"
	}
	return fmt.Sprintf("%.2fx", float64(total)/float64(fastest))
}

func failedCell(n int) string {
	if n == 0 {
		return Green.Sprint("0")
	}
	return Red.Sprint(n)
}
