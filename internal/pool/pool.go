// Package pool implements the bounded session pool: the idle queue,
// borrow/return protocol, and the producer and scavenger background
// threads described by spec §4.3.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dbpool/mysqlpool/internal/config"
	"github.com/dbpool/mysqlpool/internal/eventlog"
	"github.com/dbpool/mysqlpool/internal/metrics"
	"github.com/dbpool/mysqlpool/internal/session"
)

// sessionFactory builds a fresh, unopened Session. Tests substitute this to
// inject fakes without a live MySQL server.
type sessionFactory func() session.Session

// Stats is a snapshot of pool occupancy, returned by Pool.Stats.
type Stats struct {
	Idle      int   `json:"idle"`
	Active    int   `json:"active"`
	Total     int   `json:"total"`
	Waiting   int   `json:"waiting"`
	MaxSize   int   `json:"max_size"`
	InitSize  int   `json:"init_size"`
	Exhausted int64 `json:"acquire_timeouts_total"`
}

// Pool is the bounded, process-wide manager of Sessions described by spec
// §3. All mutable state is guarded by a single mutex; a sync.Cond over that
// mutex plays the role of the spec's single condition variable C for the
// idle-queue predicate shared by consumers and the producer. Shutdown uses
// a second, orthogonal signal — closing shutdownCh — so the scavenger's
// interruptible timed sleep doesn't have to share the idle-queue Cond with
// waiters that aren't waiting on idle at all.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	endpoint       session.Endpoint
	initSize       int
	maxSize        int
	maxIdleTime    time.Duration
	acquireTimeout time.Duration

	idle    []session.Session
	total   int
	waiting int

	shutdown   bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup

	exhausted int64

	name    string
	sink    eventlog.Sink
	newConn sessionFactory
	metrics *metrics.Collector
}

// SetMetrics wires a Prometheus collector into the pool under the given
// name label. Optional; a Pool with no collector simply skips metric
// recording. Must be called before the pool is put under load if the
// caller wants a complete time series.
func (p *Pool) SetMetrics(mc *metrics.Collector, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = mc
	p.name = name
}

var (
	instance   *Pool
	instanceMu sync.Mutex
)

// Instance lazily constructs and returns the process-wide pool from the
// config file at config.DefaultConfigPath, per spec §6's "Pool::instance()"
// entry point. Construction failures propagate to every caller until a
// later call succeeds.
func Instance() (*Pool, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}

	sink := eventlog.Default()

	cfg, err := config.Load(config.DefaultConfigPath)
	if err != nil {
		sink.Error("config load failed", "path", config.DefaultConfigPath, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrConfigLoadFailed, err)
	}
	sink.Info("config loaded", "path", config.DefaultConfigPath)
	settings := config.NewPoolSettings(cfg)

	p, err := New(settings, sink)
	if err != nil {
		return nil, err
	}
	instance = p
	return p, nil
}

// New constructs a Pool, synchronously opening exactly settings.InitSize
// sessions per spec §4.3. A failure to reach InitSize sessions is fatal:
// New returns a non-nil error and the pool is not started.
func New(settings config.PoolSettings, sink eventlog.Sink) (*Pool, error) {
	return NewWithFactory(settings, sink, session.New)
}

// NewWithFactory is New with the session constructor overridable, the
// same escape hatch the teacher's TenantPool exposed via InjectTestConn:
// it lets tests (and embedders who want a non-MySQL session.Session) drive
// the pool's concurrency and lifecycle logic without a live server.
func NewWithFactory(settings config.PoolSettings, sink eventlog.Sink, factory sessionFactory) (*Pool, error) {
	if sink == nil {
		sink = eventlog.Noop()
	}

	p := &Pool{
		endpoint: session.Endpoint{
			Host:     settings.Host,
			Port:     settings.Port,
			Username: settings.Username,
			Password: settings.Password,
			DBName:   settings.DBName,
		},
		initSize:       settings.InitSize,
		maxSize:        settings.MaxSize,
		maxIdleTime:    settings.MaxIdleTime,
		acquireTimeout: settings.AcquireTimeout,
		idle:           make([]session.Session, 0, settings.InitSize),
		shutdownCh:     make(chan struct{}),
		sink:           sink,
		newConn:        factory,
	}
	p.cond = sync.NewCond(&p.mu)

	if err := p.warmUp(); err != nil {
		return nil, err
	}

	p.wg.Add(2)
	go p.producerLoop()
	go p.scavengerLoop()

	return p, nil
}

func (p *Pool) warmUp() error {
	ctx := context.Background()
	for i := 0; i < p.initSize; i++ {
		s := p.newConn()
		if err := s.Open(ctx, p.endpoint); err != nil {
			p.sink.Error("initial session open failed", "index", i+1, "want", p.initSize, "err", err)
			p.recordSessionOpenFailed("warmup")
			return fmt.Errorf("%w: session %d/%d: %v", ErrInitialOpenFailed, i+1, p.initSize, err)
		}
		p.idle = append(p.idle, s)
		p.total++
	}
	p.sink.Info("pool warmed up", "init_size", p.initSize, "max_size", p.maxSize)
	return nil
}

// Acquire borrows a session per spec §4.3's borrow protocol, returning a
// Handle that must be closed (or released) to return the session.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()
	deadline := start.Add(p.acquireTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	defer func() { p.recordAcquireDuration(time.Since(start)) }()

	p.mu.Lock()
	for {
		if p.shutdown {
			p.mu.Unlock()
			return nil, ErrClosed
		}

		for len(p.idle) == 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				p.exhausted++
				p.mu.Unlock()
				p.sink.Warn("acquire timeout", "acquire_timeout", p.acquireTimeout)
				p.recordAcquireTimeout()
				return nil, ErrAcquireTimeout
			}
			p.waiting++
			p.waitWithTimeout(remaining)
			p.waiting--
			if p.shutdown {
				p.mu.Unlock()
				return nil, ErrClosed
			}
			if time.Now().After(deadline) && len(p.idle) == 0 {
				p.exhausted++
				p.mu.Unlock()
				p.sink.Warn("acquire timeout", "acquire_timeout", p.acquireTimeout)
				p.recordAcquireTimeout()
				return nil, ErrAcquireTimeout
			}
		}

		s := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()

		if err := s.Healthy(ctx); err == nil {
			p.mu.Lock()
			p.cond.Signal()
			p.mu.Unlock()
			return newHandle(p, s), nil
		}

		if err := s.Reopen(ctx); err == nil {
			s.Touch()
			p.mu.Lock()
			p.cond.Signal()
			p.mu.Unlock()
			return newHandle(p, s), nil
		}

		p.sink.Warn("session unrecoverable at borrow, dropping", "endpoint", p.endpoint.Host)
		p.recordSessionOpenFailed("acquire")
		s.Close()
		p.mu.Lock()
		p.total--
		p.cond.Signal()
		// fall through to the top of the loop with M held; remaining time
		// budget from the original deadline carries forward automatically
		// since deadline is fixed for the whole call.
	}
}

// waitWithTimeout wakes p.cond.Wait after at most d, so a consumer blocked
// on an empty idle queue re-checks its deadline instead of sleeping
// forever. Must be called with p.mu held; returns with p.mu held.
func (p *Pool) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, p.cond.Broadcast)
	p.cond.Wait()
	timer.Stop()
}

// returnSession implements spec §4.3's return protocol, invoked by
// Handle.Close when the pool is still alive.
func (p *Pool) returnSession(s session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := s.Healthy(context.Background()); err != nil {
		p.sink.Warn("dropping unhealthy session on return", "err", err)
		s.Close()
		p.total--
		p.cond.Signal()
		return
	}

	s.Touch()
	p.idle = append(p.idle, s)
	p.cond.Signal()
}

// dropSession implements the "session observed unrecoverable, drop without
// returning" half of Handle.Release.
func (p *Pool) dropSession(s session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.Close()
	p.total--
	p.cond.Signal()
}

// producerLoop implements spec §4.3's demand-driven producer: it only
// manufactures a session once the idle queue has been observed empty.
func (p *Pool) producerLoop() {
	defer p.wg.Done()
	ctx := context.Background()

	p.mu.Lock()
	for {
		for len(p.idle) != 0 && !p.shutdown {
			p.cond.Wait()
		}
		if p.shutdown {
			p.mu.Unlock()
			return
		}

		if p.total < p.maxSize {
			p.mu.Unlock()

			s := p.newConn()
			err := s.Open(ctx, p.endpoint)

			p.mu.Lock()
			if err != nil {
				p.sink.Warn("producer failed to open session", "err", err)
				p.recordSessionOpenFailed("producer")
				continue
			}
			p.idle = append(p.idle, s)
			p.total++
			p.cond.Signal()
			continue
		}

		// total == maxSize and idle is empty: nothing to do until a
		// consumer returns a session or shutdown happens.
		p.cond.Wait()
	}
}

// scavengerLoop implements spec §4.3's periodic idle validation and trim.
func (p *Pool) scavengerLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.maxIdleTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.scavengeOnce()
		case <-p.shutdownCh:
			return
		}
	}
}

func (p *Pool) scavengeOnce() {
	ctx := context.Background()

	p.mu.Lock()
	batch := p.idle
	p.idle = make([]session.Session, 0, len(batch))
	p.mu.Unlock()

	kept := make([]session.Session, 0, len(batch))
	for _, s := range batch {
		// Read idleness before probing: a successful Healthy refreshes
		// last_active, which would otherwise hide how long s sat unused.
		idleFor := s.IdleFor()
		if err := s.Healthy(ctx); err != nil {
			if reopenErr := s.Reopen(ctx); reopenErr != nil {
				p.sink.Warn("scavenger dropping unrecoverable session", "err", reopenErr)
				p.recordSessionOpenFailed("scavenger")
				s.Close()
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				p.recordScavengeDrop("unrecoverable")
				continue
			}
		}

		p.mu.Lock()
		trim := idleFor >= p.maxIdleTime && p.total > p.initSize
		p.mu.Unlock()
		if trim {
			s.Close()
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			p.recordScavengeDrop("idle_trim")
			continue
		}

		kept = append(kept, s)
	}

	p.mu.Lock()
	p.idle = append(kept, p.idle...)
	// Always signal, not just when total < initSize: a consumer may have
	// observed idle empty and parked in Acquire's wait while these sessions
	// were being probed outside the lock, and it needs a wakeup even when
	// nothing here was trimmed.
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Stats returns a point-in-time snapshot of pool occupancy and refreshes
// the occupancy gauges of any wired metrics.Collector.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	st := Stats{
		Idle:      len(p.idle),
		Active:    p.total - len(p.idle),
		Total:     p.total,
		Waiting:   p.waiting,
		MaxSize:   p.maxSize,
		InitSize:  p.initSize,
		Exhausted: p.exhausted,
	}
	mc, name := p.metrics, p.name
	p.mu.Unlock()

	if mc != nil {
		mc.UpdatePoolStats(name, st.Active, st.Idle, st.Total, st.Waiting)
	}
	return st
}

func (p *Pool) recordAcquireDuration(d time.Duration) {
	p.mu.Lock()
	mc, name := p.metrics, p.name
	p.mu.Unlock()
	if mc != nil {
		mc.AcquireCompleted(name, d)
	}
}

func (p *Pool) recordAcquireTimeout() {
	p.mu.Lock()
	mc, name := p.metrics, p.name
	p.mu.Unlock()
	if mc != nil {
		mc.AcquireTimedOut(name)
	}
}

func (p *Pool) recordScavengeDrop(reason string) {
	p.mu.Lock()
	mc, name := p.metrics, p.name
	p.mu.Unlock()
	if mc != nil {
		mc.ScavengeDropped(name, reason)
	}
}

func (p *Pool) recordSessionOpenFailed(source string) {
	p.mu.Lock()
	mc, name := p.metrics, p.name
	p.mu.Unlock()
	if mc != nil {
		mc.SessionOpenFailed(name, source)
	}
}

// Close shuts the pool down per spec §4.3: sets shutdown, wakes the
// producer and scavenger, waits for both to exit, then drains and destroys
// every idle session. Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil
	}
	p.shutdown = true
	close(p.shutdownCh)
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.idle {
		s.Close()
	}
	p.total -= len(p.idle)
	p.idle = nil
	p.sink.Info("pool closed")
	return nil
}
