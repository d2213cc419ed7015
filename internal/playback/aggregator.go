package playback

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// SetupOptions is what a player is configured with.
type SetupOptions struct {
	Playlist []Entry
}

// State is a snapshot of an [Aggregator]. SetupOptions is nil while fetching and
// after a failure.
type State struct {
	SetupOptions  *SetupOptions
	ErrorResponse error
	IsFetching    bool
}

// Aggregator runs [Aggregate] for the selected collection and keeps the result.
//
// Selecting another collection supersedes the running aggregation as a whole;
// its result is dropped even if some of its manifests already arrived.
type Aggregator struct {
	mu         sync.Mutex
	ctx        context.Context
	src        Source
	opts       Options
	logger     *log.Logger
	metrics    *metrics.Metrics
	collection models.Collection
	selected   bool
	gen        uint64
	state      State
	observers  []func(State)
	wg         sync.WaitGroup
}

// NewAggregator creates an idle [Aggregator]. Aggregations run under ctx.
func NewAggregator(ctx context.Context, src Source, opts Options) *Aggregator {
	logger := shared.WithLogger(opts.logger(), "component", "aggregator")
	opts.Logger = logger

	return &Aggregator{
		ctx:     ctx,
		src:     src,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Load selects collection. An empty ID clears the state; an unchanged
// collection is a no-op.
func (a *Aggregator) Load(collection models.Collection) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.selected && a.collection == collection {
		return
	}
	a.collection = collection
	a.selected = true

	if collection.ID == "" {
		a.gen++
		a.commit(State{})
		return
	}
	a.start()
}

// Reload aggregates the current collection again.
func (a *Aggregator) Reload() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.selected || a.collection.ID == "" {
		return
	}
	a.start()
}

// State returns a snapshot of the latest committed state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnChange registers an observer, called with the aggregator locked.
func (a *Aggregator) OnChange(fn func(State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// Wait blocks until every started aggregation has returned.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

func (a *Aggregator) start() {
	a.gen++
	gen, collection := a.gen, a.collection
	a.commit(State{IsFetching: true})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		entries, err := Aggregate(a.ctx, a.src, collection, a.opts)

		a.mu.Lock()
		defer a.mu.Unlock()

		if gen != a.gen {
			a.metrics.IncStaleDiscard("aggregator")
			a.logger.Debug("discarding stale aggregation", "id", collection.ID, "generation", gen, "current", a.gen)
			return
		}

		a.metrics.IncAggregation(metrics.Result(err))
		if err != nil {
			a.logger.Error("aggregation failed", "id", collection.ID, "error", err)
			a.commit(State{ErrorResponse: err})
			return
		}

		a.logger.Info("playlist ready", "id", collection.ID, "entries", len(entries))
		a.commit(State{SetupOptions: &SetupOptions{Playlist: entries}})
	}()
}

func (a *Aggregator) commit(state State) {
	a.state = state
	for _, fn := range a.observers {
		fn(state)
	}
}
