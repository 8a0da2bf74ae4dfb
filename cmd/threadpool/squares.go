package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/threadpool/pool"
)

func newSquaresCmd(a *app) *cobra.Command {
	var (
		count int
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "squares",
		Short: "Compute i*i on the pool and print the results in submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := &syncWriter{w: a.out}

			p, err := a.newPool()
			if err != nil {
				return err
			}
			defer p.Close()

			square := func(i int) (int, error) {
				out.Printf("hello %d\n", i)
				time.Sleep(delay)
				out.Printf("world %d\n", i)
				return i * i, nil
			}

			futures := make([]*pool.Future[int], 0, count)
			for i := range count {
				f, err := pool.SubmitArg(p, square, i)
				if err != nil {
					return err
				}
				futures = append(futures, f)
			}

			results := make([]string, 0, len(futures))
			for _, f := range futures {
				v, err := f.GetWithContext(cmd.Context())
				if err != nil {
					return err
				}
				results = append(results, strconv.Itoa(v))
			}

			out.Printf("%s\n", strings.Join(results, " "))
			return p.Close()
		},
	}

	cmd.Flags().IntVar(&count, "count", 8, "Number of squares to compute.")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Pause between a task's two lines of output.")
	return cmd
}
