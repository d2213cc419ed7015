package resource

import "context"

// Single fetches one resource by identifier.
type Single[K comparable, T any] struct {
	*Fetcher[K, *T]
}

// NewSingle creates a [Single] fetcher.
func NewSingle[K comparable, T any](ctx context.Context, fetch FetchFunc[K, *T], opts Options[K]) *Single[K, T] {
	return &Single[K, T]{Fetcher: New(ctx, fetch, opts)}
}

// Data returns the loaded resource, or nil while loading or after a failure.
func (s *Single[K, T]) Data() *T {
	return s.State().Value
}

// List fetches a collection by query. Q is compared with ==, so a struct of
// strings gives deep equality.
type List[Q comparable, T any] struct {
	*Fetcher[Q, []T]
}

// NewList creates a [List] fetcher.
func NewList[Q comparable, T any](ctx context.Context, fetch FetchFunc[Q, []T], opts Options[Q]) *List[Q, T] {
	return &List[Q, T]{Fetcher: New(ctx, fetch, opts)}
}

// SetQuery is SetKey for list fetchers.
func (l *List[Q, T]) SetQuery(q Q) {
	l.SetKey(q)
}

// Items returns the loaded items.
func (l *List[Q, T]) Items() []T {
	return l.State().Value
}
