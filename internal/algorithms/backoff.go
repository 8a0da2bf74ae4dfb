// Package algorithms holds the retry delay calculations used by pool workers.
package algorithms

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// BackoffKind selects how the delay between two attempts of a task grows.
type BackoffKind int

const (
	// BackoffExponential doubles the delay on every retry (default).
	BackoffExponential BackoffKind = iota
	// BackoffJittered is exponential with a random ±jitter spread so that
	// tasks failing together do not retry together.
	BackoffJittered
	// BackoffDecorrelated picks a random delay between the initial delay and
	// three times the previous delay.
	BackoffDecorrelated
)

// maxShift keeps 1<<retry from overflowing.
const maxShift = 62

func (k BackoffKind) String() string {
	switch k {
	case BackoffExponential:
		return "exponential"
	case BackoffJittered:
		return "jittered"
	case BackoffDecorrelated:
		return "decorrelated"
	default:
		return "unknown"
	}
}

// ParseBackoffKind maps a config string onto a BackoffKind.
func ParseBackoffKind(s string) (BackoffKind, bool) {
	switch s {
	case "", "exponential":
		return BackoffExponential, true
	case "jittered":
		return BackoffJittered, true
	case "decorrelated":
		return BackoffDecorrelated, true
	default:
		return BackoffExponential, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k BackoffKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BackoffKind) UnmarshalText(text []byte) error {
	kind, ok := ParseBackoffKind(string(text))
	if !ok {
		return fmt.Errorf("unknown backoff kind %q", text)
	}
	*k = kind
	return nil
}

// Backoff computes retry delays. It keeps no per-task state: callers pass the
// previous delay back in, so one Backoff can be shared by every worker.
type Backoff struct {
	kind    BackoffKind
	initial time.Duration
	max     time.Duration
	jitter  float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff builds a Backoff. maxDelay below initial is raised to initial and
// jitter is clamped to [0, 1].
func NewBackoff(kind BackoffKind, initial, maxDelay time.Duration, jitter float64) *Backoff {
	return &Backoff{
		kind:    kind,
		initial: max(initial, 0),
		max:     max(maxDelay, initial),
		jitter:  clamp(jitter, 0, 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

// Next returns the delay before retry number retry (0 = first retry).
// prev is the delay returned for the previous retry and is only consulted by
// BackoffDecorrelated.
func (b *Backoff) Next(retry int, prev time.Duration) time.Duration {
	if retry < 0 || b.initial == 0 {
		return 0
	}

	switch b.kind {
	case BackoffJittered:
		base := exponential(retry, b.initial, b.max)
		spread := 1 + (b.randFloat()*2-1)*b.jitter
		return clamp(time.Duration(float64(base)*spread), 0, b.max)

	case BackoffDecorrelated:
		if retry == 0 || prev < b.initial {
			return b.initial
		}
		upper := min(prev*3, b.max)
		if upper <= b.initial {
			return b.initial
		}
		return b.initial + time.Duration(b.randInt63n(int64(upper-b.initial)))

	default:
		return exponential(retry, b.initial, b.max)
	}
}

func (b *Backoff) randFloat() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64()
}

func (b *Backoff) randInt63n(n int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Int63n(n)
}

func exponential(retry int, initial, maxDelay time.Duration) time.Duration {
	if retry >= maxShift {
		return maxDelay
	}
	d := initial * time.Duration(int64(1)<<uint(retry))
	if d <= 0 || d > maxDelay || d/time.Duration(int64(1)<<uint(retry)) != initial {
		return maxDelay
	}
	return d
}

func clamp[T int64 | float64 | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
