package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/resource"
)

// MediaList lists media items matching the filter flags.
//
// Without --all only the first page is fetched.
func (r *Runner) MediaList(ctx context.Context, cmd *cli.Command) error {
	q := models.MediaQuery{
		Search:   cmd.String("search"),
		Ordering: cmd.String("ordering"),
		Channel:  cmd.String("channel"),
		Playlist: cmd.String("playlist"),
	}

	fetch := func(ctx context.Context, q models.MediaQuery) ([]models.MediaItem, error) {
		if cmd.Bool("all") {
			return r.client.AllMedia(ctx, q)
		}
		page, err := r.client.ListMedia(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Results, nil
	}

	list := resource.NewList(ctx, fetch, resource.Options[models.MediaQuery]{
		Name:    "media",
		Logger:  r.logger,
		Metrics: r.metrics,
	})
	list.SetQuery(q)
	list.Wait()

	state := list.State()
	if state.Err != nil {
		return fmt.Errorf("failed to list media: %w", state.Err)
	}

	r.logger.Debug("listed media", "count", len(state.Value))
	return r.render(cmd, state.Value, func(f formatter.Format) ([]byte, error) {
		return formatter.RenderMedia(f, state.Value)
	})
}

// MediaShow prints one media item.
func (r *Runner) MediaShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	item := resource.NewSingle(ctx, r.client.GetMedia, resource.Options[string]{
		Name:    "media",
		Logger:  r.logger,
		Metrics: r.metrics,
	})
	item.SetKey(id)
	item.Wait()

	if err := item.State().Err; err != nil {
		return fmt.Errorf("failed to get media %s: %w", id, err)
	}

	media := item.Data()
	return r.render(cmd, media, func(f formatter.Format) ([]byte, error) {
		return formatter.RenderMedia(f, []models.MediaItem{*media})
	})
}

// MediaDelete deletes a media item.
func (r *Runner) MediaDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.client.DeleteMedia(ctx, id); err != nil {
		return fmt.Errorf("failed to delete media %s: %w", id, err)
	}

	r.logger.Info("media deleted", "id", id)
	return r.writePlain("✓ Deleted media %s\n", id)
}

// MediaPlay prints the playback sequence of one media item.
func (r *Runner) MediaPlay(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	return r.play(ctx, cmd, models.Collection{Kind: models.MediaCollection, ID: id})
}

// MediaAnalytics prints daily views as a bar chart.
func (r *Runner) MediaAnalytics(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	analytics, err := r.client.GetAnalytics(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get analytics for %s: %w", id, err)
	}

	return r.render(cmd, analytics, func(formatter.Format) ([]byte, error) {
		return formatter.AnalyticsToText(analytics, cmd.Int("width"))
	})
}
