package pool_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/utkarsh5026/threadpool/pool"
)

func ExampleSubmitArg() {
	p, err := pool.New(4)
	if err != nil {
		panic(err)
	}
	defer p.Close()

	square := func(x int) (int, error) { return x * x, nil }

	futures := make([]*pool.Future[int], 8)
	for i := range futures {
		futures[i], _ = pool.SubmitArg(p, square, i)
	}

	for _, f := range futures {
		v, _ := f.Get()
		fmt.Print(v, " ")
	}
	fmt.Println()
	// Output: 0 1 4 9 16 25 36 49
}

func ExamplePool_Shutdown() {
	p, _ := pool.New(2)

	done := 0
	results := make(chan int, 5)
	for i := range 5 {
		_, _ = p.Go(func() {
			time.Sleep(10 * time.Millisecond)
			results <- i
		})
	}

	// Queued tasks still run before Shutdown returns.
	if err := p.Shutdown(0); err != nil {
		panic(err)
	}
	close(results)
	for range results {
		done++
	}

	_, err := p.Go(func() {})
	fmt.Println(done, errors.Is(err, pool.ErrPoolClosed))
	// Output: 5 true
}

func ExampleFuture_GetWithTimeout() {
	p, _ := pool.New(1)
	defer p.Close()

	release := make(chan struct{})
	f, _ := pool.Submit(p, func() (string, error) {
		<-release
		return "done", nil
	})

	_, err := f.GetWithTimeout(10 * time.Millisecond)
	fmt.Println(err)

	close(release)
	v, _ := f.Get()
	fmt.Println(v)
	// Output:
	// context deadline exceeded
	// done
}
