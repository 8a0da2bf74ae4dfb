package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/utkarsh5026/threadpool/internal/report"
	"github.com/utkarsh5026/threadpool/pool"
)

var errInjected = errors.New("injected failure")

type benchOptions struct {
	tasks     int
	work      time.Duration
	failEvery int
	sweep     []int
	quiet     bool
}

func newBenchCmd(a *app) *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure throughput and latency of the pool",
		Long: `bench submits --tasks tasks that each spend --work on a worker and reports
throughput and submit-to-completion latency. With --sweep it repeats the run
for every listed worker count and ranks them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sizes := opts.sweep
			if len(sizes) == 0 {
				sizes = []int{a.cfg.WorkerCount()}
			}

			if !opts.quiet {
				report.Header(a.out, "Thread Pool Benchmark")
				_, _ = fmt.Fprintf(a.out, "Tasks: %s  Work: %v  Workers: %v\n\n",
					report.FormatNumber(opts.tasks), opts.work, sizes)
			}

			results := make([]report.Result, 0, len(sizes))
			for _, workers := range sizes {
				r, err := runBench(a, workers, opts)
				if err != nil {
					return err
				}
				results = append(results, r)
			}

			if err := report.Render(a.out, results); err != nil {
				return err
			}
			if !opts.quiet {
				_, _ = report.Green.Fprintf(a.out, "\n✅ Completed %d benchmark run(s)\n", len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.tasks, "tasks", 10000, "Number of tasks per run.")
	cmd.Flags().DurationVar(&opts.work, "work", time.Millisecond, "Time each task spends on its worker.")
	cmd.Flags().IntVar(&opts.failEvery, "fail-every", 0, "Make every Nth task return an error (0 = never).")
	cmd.Flags().IntSliceVar(&opts.sweep, "sweep", nil, "Worker counts to compare, e.g. 1,2,4,8 (default: --workers).")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the results table.")
	return cmd
}

func runBench(a *app, workers int, opts benchOptions) (report.Result, error) {
	if workers < 1 {
		return report.Result{}, fmt.Errorf("invalid worker count %d in --sweep", workers)
	}

	name := fmt.Sprintf("bench-w%d", workers)
	if a.cfg.Name != "" {
		name = fmt.Sprintf("%s-w%d", a.cfg.Name, workers)
	}

	var bar *progressbar.ProgressBar
	if !opts.quiet {
		bar = report.NewProgressBar(opts.tasks, a.errOut, fmt.Sprintf("workers=%d", workers))
	}

	p, err := pool.New(workers, a.poolOptions(pool.WithName(name), pool.WithOnTaskEnd(func(pool.TaskInfo, error) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}))...)
	if err != nil {
		return report.Result{}, err
	}
	defer p.Close()

	futures := make([]*pool.Future[time.Duration], 0, opts.tasks)
	start := time.Now()
	for i := range opts.tasks {
		submitted := time.Now()
		fail := opts.failEvery > 0 && (i+1)%opts.failEvery == 0
		f, err := pool.Submit(p, func() (time.Duration, error) {
			if opts.work > 0 {
				time.Sleep(opts.work)
			}
			if fail {
				return time.Since(submitted), errInjected
			}
			return time.Since(submitted), nil
		})
		if err != nil {
			return report.Result{}, err
		}
		futures = append(futures, f)
	}

	latencies := make([]time.Duration, 0, len(futures))
	failed := 0
	for _, f := range futures {
		d, err := f.Get()
		if err != nil {
			failed++
		}
		latencies = append(latencies, d)
	}
	total := time.Since(start)

	if err := p.Close(); err != nil {
		return report.Result{}, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	a.log.Info("benchmark run finished",
		zap.String("pool", p.Name()),
		zap.Int("workers", workers),
		zap.Duration("total", total),
		zap.Int("failed", failed))

	return report.Summarize(workers, total, latencies, failed), nil
}
