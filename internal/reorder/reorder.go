// Package reorder moves items in a list immediately and persists the final order
// once moves stop arriving.
//
// Each move restarts a trailing-edge debounce timer. When it fires, the whole
// current order is written in one call, so a burst of moves costs one request.
// Writes are serialized and numbered; a write for an older order is skipped once
// a newer one has been attempted.
package reorder

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/shared"
)

// DefaultDelay is the quiet period before an order is persisted.
const DefaultDelay = 800 * time.Millisecond

// PersistFunc writes a full order.
type PersistFunc[T any] func(ctx context.Context, items []T) error

type Options struct {
	Delay   time.Duration
	Clock   shared.Clock
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Result describes one completed write.
type Result[T any] struct {
	Items []T
	Seq   uint64
	Err   error
}

// Controller holds a list and its pending reorder.
type Controller[T any] struct {
	mu        sync.Mutex
	writeMu   sync.Mutex
	ctx       context.Context
	persist   PersistFunc[T]
	opts      Options
	logger    *log.Logger
	items     []T
	seq       uint64
	attempted uint64
	timer     shared.Timer
	err       error
	closed    bool
	observers []func(Result[T])
	wg        sync.WaitGroup
}

// New creates a controller over a copy of items.
func New[T any](ctx context.Context, items []T, persist PersistFunc[T], opts Options) *Controller[T] {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = shared.NewClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &Controller[T]{
		ctx:     ctx,
		persist: persist,
		opts:    opts,
		logger:  shared.WithLogger(logger, "component", "reorder"),
		items:   slices.Clone(items),
	}
}

// Move relocates the item at from to index to and schedules a write.
func (c *Controller[T]) Move(from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: controller is closed", shared.ErrInvalidInput)
	}

	items, err := Move(c.items, from, to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	c.items = items
	c.seq++
	c.opts.Metrics.IncReorderMove()
	c.logger.Debug("moved", "from", from, "to", to, "seq", c.seq)
	c.schedule(c.seq)
	return nil
}

// schedule restarts the debounce timer. Must be called with mu held.
func (c *Controller[T]) schedule(seq uint64) {
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}

	c.wg.Add(1)
	c.timer = c.opts.Clock.AfterFunc(c.opts.Delay, func() {
		defer c.wg.Done()

		c.mu.Lock()
		if seq != c.seq {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		items := slices.Clone(c.items)
		c.mu.Unlock()

		c.write(seq, items)
	})
}

func (c *Controller[T]) write(seq uint64, items []T) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if seq <= c.attempted {
		c.mu.Unlock()
		c.logger.Debug("skipping superseded order", "seq", seq)
		return nil
	}
	c.attempted = seq
	c.mu.Unlock()

	err := c.persist(c.ctx, items)
	c.opts.Metrics.IncReorderWrite(metrics.Result(err))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = err
	if err != nil {
		c.logger.Error("failed to persist order", "seq", seq, "error", err)
	} else {
		c.logger.Info("order persisted", "seq", seq, "items", len(items))
	}

	result := Result[T]{Items: items, Seq: seq, Err: err}
	for _, fn := range c.observers {
		fn(result)
	}
	return err
}

// Flush writes a pending order now instead of waiting for the timer.
func (c *Controller[T]) Flush() error {
	c.mu.Lock()
	if c.timer == nil {
		c.mu.Unlock()
		return nil
	}
	if c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
	seq, items := c.seq, slices.Clone(c.items)
	c.mu.Unlock()

	return c.write(seq, items)
}

// Close flushes, rejects further moves, and waits for outstanding writes.
func (c *Controller[T]) Close() error {
	err := c.Flush()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	return err
}

// Items returns a copy of the local order.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Pending reports whether a write is scheduled.
func (c *Controller[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Err returns the result of the most recent write.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnPersist registers an observer for completed writes, called with the controller locked.
func (c *Controller[T]) OnPersist(fn func(Result[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Move returns a copy of s with the element at from moved to index to. The
// other elements keep their relative order.
func Move[T any](s []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) {
		return nil, fmt.Errorf("%w: move %d to %d in list of %d", shared.ErrIndexOutOfRange, from, to, len(s))
	}

	out := slices.Clone(s)
	if from == to {
		return out, nil
	}

	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item), nil
}
