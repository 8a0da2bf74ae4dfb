package pool

import (
	"fmt"
	"runtime"
	"testing"
)

func BenchmarkSubmit(b *testing.B) {
	p, err := New(runtime.GOMAXPROCS(0))
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f, err := SubmitValue(p, func() int { return i })
		if err != nil {
			b.Fatal(err)
		}
		_ = f.Wait()
	}
}

func BenchmarkSubmitBatch(b *testing.B) {
	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			p, err := New(workers)
			if err != nil {
				b.Fatal(err)
			}
			defer p.Close()

			futures := make([]*Future[int], 0, 256)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				f, err := SubmitArg(p, square, i)
				if err != nil {
					b.Fatal(err)
				}
				futures = append(futures, f)
				if len(futures) == cap(futures) {
					for _, f := range futures {
						_, _ = f.Get()
					}
					futures = futures[:0]
				}
			}
			for _, f := range futures {
				_, _ = f.Get()
			}
		})
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	p, err := New(runtime.GOMAXPROCS(0))
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			f, err := SubmitArg(p, square, 3)
			if err != nil {
				b.Error(err)
				return
			}
			_, _ = f.Get()
		}
	})
}

func square(x int) (int, error) {
	return x * x, nil
}
