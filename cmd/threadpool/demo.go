package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/threadpool/pool"
)

func newDemoCmd(a *app) *cobra.Command {
	var (
		tasks    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Submit sleeping tasks and show which worker ran each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := &syncWriter{w: a.out}

			p, err := a.newPool(pool.WithOnTaskEnd(func(info pool.TaskInfo, err error) {
				if err != nil {
					out.Printf("task %d failed on worker %d: %v\n", info.ID, info.WorkerID, err)
					return
				}
				out.Printf("task %d ran on worker %d\n", info.ID, info.WorkerID)
			}))
			if err != nil {
				return err
			}

			start := time.Now()
			for range tasks {
				if _, err := p.Go(func() { time.Sleep(interval) }); err != nil {
					_ = p.Close()
					return err
				}
			}

			if err := p.Close(); err != nil {
				return err
			}

			s := p.Stats()
			out.Printf("%d tasks on %d workers in %v\n", s.Completed, s.Workers, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&tasks, "tasks", 20, "Number of tasks to submit.")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "How long each task sleeps.")
	return cmd
}
