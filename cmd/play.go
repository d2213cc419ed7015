package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/playback"
	"github.com/desertthunder/mediactl/internal/shared"
)

// play aggregates collection into a playback sequence and prints it, as a listing
// or as extended M3U.
func (r *Runner) play(ctx context.Context, cmd *cli.Command, collection models.Collection) error {
	opts := playback.Options{
		Concurrency: r.config.Playback.Concurrency,
		RateLimit:   r.config.Playback.RateLimit,
		OmitFailed:  r.config.Playback.OmitFailed || cmd.Bool("omit-failed"),
		Logger:      r.logger,
		Metrics:     r.metrics,
	}

	agg := playback.NewAggregator(ctx, r.client, opts)
	agg.Load(collection)
	agg.Wait()

	state := agg.State()
	if state.ErrorResponse != nil {
		return fmt.Errorf("failed to load %s %s: %w", collection.Kind, collection.ID, state.ErrorResponse)
	}
	if state.SetupOptions == nil {
		return fmt.Errorf("%w: no playback sequence for %s %s", shared.ErrEmptyResponse, collection.Kind, collection.ID)
	}

	if cmd.Bool("m3u") {
		engine := playback.NewM3UEngine(r.output)
		tracker := playback.Track(engine)
		if err := engine.Setup(*state.SetupOptions); err != nil {
			return err
		}
		if cmd.IsSet("select") {
			if err := engine.SelectItem(cmd.Int("select")); err != nil {
				return err
			}
		}
		if item, ok := tracker.Item(); ok {
			_, index := tracker.Current()
			r.logger.Info("current item", "index", index, "title", item.Title())
		}
		return nil
	}

	entries := state.SetupOptions.Playlist
	if cmd.IsSet("select") {
		i := cmd.Int("select")
		if i < 0 || i >= len(entries) {
			return fmt.Errorf("%w: item %d of %d", shared.ErrIndexOutOfRange, i, len(entries))
		}
		entries = entries[i:]
	}

	return r.render(cmd, entries, func(formatter.Format) ([]byte, error) {
		return formatter.EntriesToText(entries)
	})
}
