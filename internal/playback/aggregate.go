// Package playback turns a media item or playlist into the flat rendition list a
// player is set up with.
//
// The player configuration lists media items, each pointing at a manifest of
// renditions. Manifests are fetched concurrently and flattened in item order,
// then rendition order, with rendition fields winning over item metadata.
package playback

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Source is the subset of the API client the aggregator needs.
type Source interface {
	PlayerConfiguration(ctx context.Context, collection models.Collection) (*models.PlayerConfiguration, error)
	FetchManifest(ctx context.Context, url string) (*models.Manifest, error)
}

// Entry is one playable rendition merged with its item's metadata.
type Entry map[string]any

func (e Entry) str(key string) string {
	s, _ := e[key].(string)
	return s
}

func (e Entry) ID() string    { return e.str("id") }
func (e Entry) Title() string { return e.str("title") }
func (e Entry) File() string  { return e.str("file") }

// Options tunes the manifest fan-out.
type Options struct {
	// Concurrency caps in-flight manifest requests; zero means unlimited.
	Concurrency int
	// RateLimit caps manifest requests per second; zero means unlimited.
	RateLimit float64
	// OmitFailed drops items whose manifest failed instead of failing the whole
	// aggregation.
	OmitFailed bool
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return shared.DiscardLogger()
	}
	return o.Logger
}

// Aggregate loads the player configuration for collection and flattens every
// item's manifest into one ordered list.
func Aggregate(ctx context.Context, src Source, collection models.Collection, opts Options) ([]Entry, error) {
	logger := opts.logger()

	config, err := src.PlayerConfiguration(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load player configuration: %w", err)
	}

	items := config.MediaItems
	manifests := make([]*models.Manifest, len(items))

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, item := range items {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return fmt.Errorf("manifest for %s: %w", item.ID, err)
				}
			}

			manifest, err := src.FetchManifest(ctx, item.PlaylistURL)
			if err != nil {
				if opts.OmitFailed {
					logger.Warn("omitting item with failed manifest", "id", item.ID, "error", err)
				}
				return fmt.Errorf("manifest for %s: %w", item.ID, err)
			}
			manifests[i] = manifest
			return nil
		})
	}

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation interrupted: %w", err)
	}
	if waitErr != nil && !opts.OmitFailed {
		return nil, waitErr
	}

	entries := make([]Entry, 0, len(items))
	failed := 0
	for i, item := range items {
		if manifests[i] == nil {
			failed++
			continue
		}
		meta := item.Fields()
		for _, rendition := range manifests[i].Playlist {
			entries = append(entries, Entry(models.Merge(meta, rendition)))
		}
	}

	if failed > 0 && failed == len(items) {
		return nil, fmt.Errorf("all %d manifests failed: %w", failed, waitErr)
	}

	logger.Debug("aggregated playlist", "kind", collection.Kind, "id", collection.ID, "items", len(items), "entries", len(entries))
	return entries, nil
}
