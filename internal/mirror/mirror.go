package mirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/metrics"
)

// Loader reads the full membership of the observed collection. Every refresh
// replaces the snapshot wholesale; snapshots are never merged.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Mirror keeps an in-memory copy of one collection, refreshed on change
// triggers. Readers always see the last successfully loaded snapshot.
type Mirror[T any] struct {
	collection string
	load       Loader[T]
	logg       *logger.Logger
	metrics    *metrics.MirrorMetrics

	// 1-buffered so triggers arriving during a refresh coalesce into a
	// single follow-up reload.
	trigger chan struct{}

	mu         sync.RWMutex
	snapshot   []T
	generation uint64
	observers  []func([]T)

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Mirror.
type Option[T any] func(*Mirror[T])

// WithLogger attaches the error sink used when a refresh fails.
func WithLogger[T any](logg *logger.Logger) Option[T] {
	return func(m *Mirror[T]) { m.logg = logg }
}

// WithMetrics attaches refresh counters and the snapshot size gauge.
func WithMetrics[T any](mm *metrics.MirrorMetrics) Option[T] {
	return func(m *Mirror[T]) { m.metrics = mm }
}

// New builds a mirror for the named collection.
func New[T any](collection string, load Loader[T], opts ...Option[T]) (*Mirror[T], error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name required")
	}
	if load == nil {
		return nil, fmt.Errorf("loader required")
	}
	m := &Mirror[T]{
		collection: collection,
		load:       load,
		trigger:    make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start performs the initial load and then refreshes on every trigger until
// the context is canceled or the mirror is closed. A failed initial load is
// reported to the error sink and leaves the snapshot empty until the next
// trigger succeeds.
func (m *Mirror[T]) Start(ctx context.Context) {
	m.refresh(ctx)
	go m.run(ctx)
}

func (m *Mirror[T]) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.closed:
			return
		case <-m.trigger:
			m.refresh(ctx)
		}
	}
}

// Notify schedules a refresh. Safe to call from any goroutine; triggers that
// arrive while a refresh is in flight collapse into one pending reload.
func (m *Mirror[T]) Notify() {
	select {
	case <-m.closed:
	case m.trigger <- struct{}{}:
	default:
	}
}

func (m *Mirror[T]) refresh(ctx context.Context) {
	select {
	case <-m.closed:
		return
	default:
	}

	next, err := m.load(ctx)
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, fmt.Sprintf("mirror refresh failed for %s, keeping previous snapshot", m.collection), err)
		}
		m.metrics.IncFailure(m.collection)
		return
	}

	m.mu.Lock()
	m.snapshot = next
	m.generation++
	observers := make([]func([]T), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	m.metrics.ObserveRefresh(m.collection, len(next))

	for _, fn := range observers {
		fn(m.copySnapshot(next))
	}
}

// Current returns a copy of the latest snapshot.
func (m *Mirror[T]) Current() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copySnapshot(m.snapshot)
}

// Generation returns the number of successful refreshes so far.
func (m *Mirror[T]) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// OnChange registers a callback fired after every successful refresh. The
// callback receives its own copy of the snapshot.
func (m *Mirror[T]) OnChange(fn func([]T)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Collection returns the observed collection name.
func (m *Mirror[T]) Collection() string {
	return m.collection
}

// Close stops refreshes. Idempotent; triggers after Close are no-ops.
func (m *Mirror[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
}

func (m *Mirror[T]) copySnapshot(src []T) []T {
	out := make([]T, len(src))
	copy(out, src)
	return out
}
