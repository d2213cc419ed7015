// Package resource fetches remote resources keyed by an identifier or query and
// discards responses to superseded requests.
//
// Every fetch captures a generation number. A result is committed only when its
// generation is still current, so a slow response for an old key never
// overwrites the state of a newer one. Stale results are dropped without
// touching the state, including IsLoading.
package resource

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/shared"
)

// State is a snapshot of a fetcher.
type State[V any] struct {
	IsLoading bool
	Value     V
	Err       error
}

// FetchFunc loads the value for key.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Options configures a [Fetcher].
type Options[K comparable] struct {
	// Name labels logs and stale discard metrics.
	Name    string
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Skip reports keys that mean "nothing selected". Such keys reset the state
	// without issuing a fetch.
	Skip func(K) bool
}

// Fetcher owns the state for one keyed resource.
type Fetcher[K comparable, V any] struct {
	mu        sync.Mutex
	ctx       context.Context
	fetch     FetchFunc[K, V]
	opts      Options[K]
	logger    *log.Logger
	key       K
	hasKey    bool
	gen       uint64
	state     State[V]
	observers []func(State[V])
	wg        sync.WaitGroup
}

// New creates a fetcher. ctx bounds every fetch it issues.
func New[K comparable, V any](ctx context.Context, fetch FetchFunc[K, V], opts Options[K]) *Fetcher[K, V] {
	if opts.Name == "" {
		opts.Name = "fetcher"
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &Fetcher[K, V]{
		ctx:    ctx,
		fetch:  fetch,
		opts:   opts,
		logger: shared.WithLogger(logger, "component", "fetcher", "resource", opts.Name),
	}
}

// SetKey selects key and fetches it. An unchanged key is a no-op.
func (f *Fetcher[K, V]) SetKey(key K) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hasKey && f.key == key {
		return
	}
	f.key = key
	f.hasKey = true

	if f.opts.Skip != nil && f.opts.Skip(key) {
		f.gen++
		f.commit(State[V]{})
		return
	}
	f.start()
}

// Refresh refetches the current key even if it has not changed.
func (f *Fetcher[K, V]) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasKey || (f.opts.Skip != nil && f.opts.Skip(f.key)) {
		return
	}
	f.start()
}

// Reset forgets the key and clears the state. In-flight fetches become stale.
func (f *Fetcher[K, V]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero K
	f.key = zero
	f.hasKey = false
	f.gen++
	f.commit(State[V]{})
}

// Key returns the current key and whether one is set.
func (f *Fetcher[K, V]) Key() (K, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, f.hasKey
}

// State returns a snapshot of the current state.
func (f *Fetcher[K, V]) State() State[V] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnChange registers an observer. Observers run with the fetcher locked, in
// commit order, and must not call back into it.
func (f *Fetcher[K, V]) OnChange(fn func(State[V])) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// Wait blocks until every issued fetch has returned.
func (f *Fetcher[K, V]) Wait() {
	f.wg.Wait()
}

// start must be called with mu held.
func (f *Fetcher[K, V]) start() {
	f.gen++
	gen, key := f.gen, f.key
	f.commit(State[V]{IsLoading: true})

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		value, err := f.fetch(f.ctx, key)

		f.mu.Lock()
		defer f.mu.Unlock()

		if gen != f.gen {
			f.opts.Metrics.IncStaleDiscard(f.opts.Name)
			f.logger.Debug("discarding stale response", "key", key, "generation", gen, "current", f.gen)
			return
		}

		if err != nil {
			f.logger.Error("fetch failed", "key", key, "error", err)
			f.commit(State[V]{Err: err})
			return
		}
		f.commit(State[V]{Value: value})
	}()
}

func (f *Fetcher[K, V]) commit(state State[V]) {
	f.state = state
	for _, fn := range f.observers {
		fn(state)
	}
}
