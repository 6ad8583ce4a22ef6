package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dbpool/mysqlpool/internal/config"
	"github.com/dbpool/mysqlpool/internal/eventlog"
)

// newBenchPool creates a Pool pre-loaded with initSize fake sessions and a large
// acquire timeout so waits don't skew results.
func newBenchPool(b *testing.B, initSize, maxSize int) *Pool {
	b.Helper()
	settings := config.PoolSettings{
		Host: "localhost", Port: 3306, Username: "bench", DBName: "bench",
		InitSize:       initSize,
		MaxSize:        maxSize,
		MaxIdleTime:    5 * time.Minute,
		AcquireTimeout: 30 * time.Second,
	}
	p, err := NewWithFactory(settings, eventlog.Noop(), newFakeSessionFactory(nil, nil))
	if err != nil {
		b.Fatalf("NewWithFactory failed: %v", err)
	}
	return p
}

// BenchmarkAcquireRelease measures the throughput of a single goroutine
// repeatedly acquiring and immediately releasing a session. Pool size = 1
// so there's no contention; this measures pure acquire/return overhead.
func BenchmarkAcquireRelease(b *testing.B) {
	p := newBenchPool(b, 1, 1)
	defer p.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := p.Acquire(ctx)
		if err != nil {
			b.Fatalf("Acquire failed: %v", err)
		}
		h.Close()
	}
}

// BenchmarkAcquireReleaseParallel measures throughput under concurrent
// access with a fixed pool of 12 sessions so goroutines rarely wait.
func BenchmarkAcquireReleaseParallel(b *testing.B) {
	p := newBenchPool(b, 12, 12)
	defer p.Close()

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			h, err := p.Acquire(ctx)
			if err != nil {
				continue
			}
			h.Close()
		}
	})
}

// BenchmarkAcquireContended measures latency when goroutines compete for
// fewer sessions than goroutines.
func BenchmarkAcquireContended(b *testing.B) {
	const poolSize = 4
	p := newBenchPool(b, poolSize, poolSize)
	defer p.Close()

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			h, err := p.Acquire(ctx)
			if err != nil {
				continue
			}
			time.Sleep(time.Microsecond)
			h.Close()
		}
	})
}

// BenchmarkPoolStats measures the overhead of reading pool stats (polled
// periodically by the metrics and statsapi surfaces in production).
func BenchmarkPoolStats(b *testing.B) {
	p := newBenchPool(b, 4, 4)
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Stats()
	}
}

// BenchmarkConcurrentAcquireReleaseThroughput measures aggregate ops/sec
// with a worker-pool pattern: 32 workers each acquire a session and
// immediately release it.
func BenchmarkConcurrentAcquireReleaseThroughput(b *testing.B) {
	const poolSize = 8
	p := newBenchPool(b, poolSize, poolSize)
	defer p.Close()

	ctx := context.Background()
	const workers = 32
	work := make(chan struct{}, b.N)
	for i := 0; i < b.N; i++ {
		work <- struct{}{}
	}
	close(work)

	b.ResetTimer()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				h, err := p.Acquire(ctx)
				if err != nil {
					continue
				}
				h.Close()
			}
		}()
	}
	wg.Wait()
}
