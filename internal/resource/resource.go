package resource

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher loads the current value of a resource.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Options configure a Resource.
type Options struct {
	Name     string
	Interval time.Duration
	Logger   *slog.Logger
}

const defaultInterval = 10 * time.Second

// Snapshot is a point-in-time copy of a resource's cache. Value is shared
// with the cache and must be treated as read-only.
type Snapshot[T any] struct {
	Name                string
	Value               T
	HasValue            bool
	Loading             bool
	Err                 error
	UpdatedAt           time.Time
	Seq                 uint64
	ConsecutiveFailures int
}

// ErrorText returns the error message, or "" when the last fetch succeeded.
func (s Snapshot[T]) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// IsOffline returns true when the resource failed multiple polls in a row.
func (s Snapshot[T]) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

type tickerFunc func(time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Resource is a polled cache of a single value of type T.
type Resource[T any] struct {
	name     string
	interval time.Duration
	fetch    Fetcher[T]
	logger   *slog.Logger
	ctx      context.Context

	issued    atomic.Uint64
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	snap      Snapshot[T]
	applied   uint64
	closed    bool
	observers []func(Snapshot[T])
}

// Start creates a resource, starts its ticker and issues the first fetch
// immediately. The resource stops when ctx is done or Close is called.
func Start[T any](ctx context.Context, opts Options, fetch Fetcher[T]) *Resource[T] {
	return start(ctx, opts, fetch, realTicker)
}

func start[T any](ctx context.Context, opts Options, fetch Fetcher[T], newTicker tickerFunc) *Resource[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Resource[T]{
		name:     opts.Name,
		interval: opts.Interval,
		fetch:    fetch,
		logger:   logger.With("resource", opts.Name),
		ctx:      ctx,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		snap:     Snapshot[T]{Name: opts.Name, Loading: true},
	}

	ticks, stopTicker := newTicker(r.interval)
	go r.run(ticks, stopTicker)
	r.Refetch()
	return r
}

func (r *Resource[T]) run(ticks <-chan time.Time, stopTicker func()) {
	defer close(r.done)
	defer stopTicker()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ctx.Done():
			r.markClosed()
			return
		case <-ticks:
			r.Refetch()
		}
	}
}

// Name returns the resource identity used in logs.
func (r *Resource[T]) Name() string { return r.name }

// Interval returns the scheduled poll cadence.
func (r *Resource[T]) Interval() time.Duration { return r.interval }

// Refetch issues an immediate out-of-band fetch. It is safe to call from any
// goroutine, never blocks on the network, and leaves the ticker untouched.
func (r *Resource[T]) Refetch() {
	if r.isClosed() {
		return
	}
	seq := r.issued.Add(1)
	go r.fetchAndApply(seq)
}

// Issued returns the sequence number of the most recently issued fetch.
func (r *Resource[T]) Issued() uint64 {
	return r.issued.Load()
}

// Subscribe registers fn to be called with every applied snapshot. Calls may
// arrive out of order across goroutines; compare Snapshot.Seq when it matters.
func (r *Resource[T]) Subscribe(fn func(Snapshot[T])) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Snapshot returns a copy of the current cache state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Close stops the ticker and discards any result that arrives afterwards.
// It is idempotent.
func (r *Resource[T]) Close() {
	r.closeOnce.Do(func() {
		r.markClosed()
		close(r.stop)
	})
	<-r.done
}

// Done is closed once the ticker goroutine has exited.
func (r *Resource[T]) Done() <-chan struct{} {
	return r.done
}

func (r *Resource[T]) markClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Resource[T]) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Resource[T]) fetchAndApply(seq uint64) {
	value, err := r.fetch(r.ctx)
	snap, observers, ok := r.apply(seq, value, err)
	if !ok {
		return
	}
	if err != nil {
		r.logger.Warn("poll failed", "seq", seq, "failures", snap.ConsecutiveFailures, "err", err)
	}
	for _, fn := range observers {
		fn(snap)
	}
}

func (r *Resource[T]) apply(seq uint64, value T, err error) (Snapshot[T], []func(Snapshot[T]), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Debug("dropping result after close", "seq", seq)
		return Snapshot[T]{}, nil, false
	}
	if seq <= r.applied {
		r.logger.Debug("dropping stale result", "seq", seq, "applied", r.applied)
		return Snapshot[T]{}, nil, false
	}
	r.applied = seq

	r.snap.Loading = false
	r.snap.Seq = seq
	r.snap.UpdatedAt = time.Now()
	if err != nil {
		r.snap.Err = err
		r.snap.ConsecutiveFailures++
	} else {
		r.snap.Value = value
		r.snap.HasValue = true
		r.snap.Err = nil
		r.snap.ConsecutiveFailures = 0
	}
	return r.snap, slices.Clone(r.observers), true
}
