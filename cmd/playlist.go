package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/reorder"
	"github.com/desertthunder/mediactl/internal/shared"
	"github.com/desertthunder/mediactl/internal/tasks"
	"github.com/desertthunder/mediactl/internal/ui"
)

// PlaylistList lists playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	page, err := r.client.ListPlaylists(ctx, models.SearchQuery{Search: cmd.String("search")})
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	return r.render(cmd, page.Results, func(formatter.Format) ([]byte, error) {
		var buf bytes.Buffer
		for _, p := range page.Results {
			fmt.Fprintf(&buf, "%s\t%s\n", p.ID, p.Title)
		}
		return buf.Bytes(), nil
	})
}

// PlaylistShow prints a playlist with its media in playlist order.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	playlist, items, err := r.playlistWithMedia(ctx, id)
	if err != nil {
		return err
	}

	f, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if f == formatter.JSON && !cmd.Bool("pretty") {
		return r.writeJSON(map[string]any{"playlist": playlist, "media": items}, false)
	}

	data, err := formatter.RenderPlaylist(f, playlist, items)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" || cmd.Bool("save") {
		written, err := formatter.WriteExport(data, path, playlist.ID, f)
		if err != nil {
			return err
		}
		r.logger.Info("playlist exported", "path", written, "format", f)
		return r.writePlain("✓ Exported %d items to %s\n", len(items), written)
	}

	return r.writeBytes(data)
}

// PlaylistCreate creates a playlist in the given or configured channel.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	channelID, err := r.channelID(ctx, cmd.String("channel"))
	if err != nil {
		return err
	}

	playlist, err := r.client.CreatePlaylist(ctx, models.PlaylistCreate{
		ChannelID:   channelID,
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}
	return r.writePlain("✓ Created playlist %s (%s)\n", playlist.Title, playlist.ID)
}

// PlaylistDelete deletes a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.client.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}

	r.logger.Info("playlist deleted", "id", id)
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// PlaylistPlay prints the playback sequence of a playlist.
func (r *Runner) PlaylistPlay(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	return r.play(ctx, cmd, models.Collection{Kind: models.PlaylistCollection, ID: id})
}

// PlaylistMove applies a series of moves and saves the resulting order in one write.
func (r *Runner) PlaylistMove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	moves, err := parseMoves(cmd.StringSlice("move"))
	if err != nil {
		return err
	}

	playlist, items, err := r.playlistWithMedia(ctx, id)
	if err != nil {
		return err
	}

	check := items
	for _, m := range moves {
		if check, err = reorder.Move(check, m[0], m[1]); err != nil {
			return err
		}
	}

	ctrl := r.newReorder(ctx, playlist.ID, items)
	for _, m := range moves {
		if err := ctrl.Move(m[0], m[1]); err != nil {
			return err
		}
	}
	if err := ctrl.Close(); err != nil {
		return fmt.Errorf("failed to save order for %s: %w", playlist.ID, err)
	}

	r.writePlainHeader(playlist.Title)
	for i, item := range ctrl.Items() {
		r.writePlain("%d. %s (%s)\n", i+1, item.Title, item.ID)
	}
	return nil
}

// PlaylistReorder opens the interactive reorder view.
func (r *Runner) PlaylistReorder(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	playlist, items, err := r.playlistWithMedia(ctx, id)
	if err != nil {
		return err
	}

	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctrl := r.newReorder(ctx, playlist.ID, items)
	model := ui.NewReorderModel(playlist.Title, ctrl)

	runErr := ui.Run(ctx, model)
	if err := ctrl.Close(); err != nil {
		return fmt.Errorf("failed to save order for %s: %w", playlist.ID, err)
	}
	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}

// PlaylistExport writes the given playlists, or every playlist with --all, into
// one directory along with an export manifest.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		page, err := r.client.ListPlaylists(ctx, models.SearchQuery{})
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range page.Results {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: pass playlist ids or --all", shared.ErrMissingArgument)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			case tasks.ExportPlaylist:
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := tasks.BulkExport(ctx, progressCh, tasks.SourceFunc(r.playlistWithMedia), ids, tasks.BulkExportOpts{
		Format:     f,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Logger:     r.logger,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d playlists failed to export", shared.ErrAPIRequest, result.FailedExports)
	}
	return nil
}

func (r *Runner) newReorder(ctx context.Context, playlistID string, items []models.MediaItem) *reorder.Controller[models.MediaItem] {
	return reorder.New(ctx, items, r.persistOrder(playlistID), reorder.Options{
		Delay:   r.config.Reorder.Debounce(),
		Logger:  r.logger,
		Metrics: r.metrics,
	})
}

// persistOrder sends the order to the API and records the outcome locally.
// A journal failure is logged and does not fail the write.
func (r *Runner) persistOrder(playlistID string) reorder.PersistFunc[models.MediaItem] {
	return func(ctx context.Context, items []models.MediaItem) error {
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}

		err := r.client.SetPlaylistOrder(ctx, playlistID, ids)

		order := &models.PlaylistOrder{PlaylistID: playlistID, MediaIDs: ids, Status: models.OrderSaved}
		if err != nil {
			order.Status = models.OrderFailed
			order.Error = err.Error()
		}
		if repo, repoErr := r.orderRepository(); repoErr != nil {
			r.logger.Warn("order journal unavailable", "error", repoErr)
		} else if saveErr := repo.Save(order); saveErr != nil {
			r.logger.Warn("failed to journal order", "playlist", playlistID, "error", saveErr)
		}
		return err
	}
}

// playlistWithMedia loads a playlist and its media ordered by the playlist's mediaIds.
// Media the playlist does not list keep their API order at the end.
func (r *Runner) playlistWithMedia(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error) {
	playlist, err := r.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	media, err := r.client.AllMedia(ctx, models.MediaQuery{Playlist: id})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list media for playlist %s: %w", id, err)
	}

	return playlist, orderByIDs(media, playlist.MediaIDs), nil
}

func orderByIDs(media []models.MediaItem, ids []string) []models.MediaItem {
	if len(ids) == 0 {
		return media
	}

	byID := make(map[string]models.MediaItem, len(media))
	for _, m := range media {
		byID[m.ID] = m
	}

	ordered := make([]models.MediaItem, 0, len(media))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
			delete(byID, id)
		}
	}
	for _, m := range media {
		if _, ok := byID[m.ID]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

// parseMoves parses "from:to" pairs.
func parseMoves(specs []string) ([][2]int, error) {
	moves := make([][2]int, 0, len(specs))
	for _, s := range specs {
		from, to, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("%w: move %q must be from:to", shared.ErrInvalidFlag, s)
		}
		f, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("%w: move %q: %v", shared.ErrInvalidFlag, s, err)
		}
		t, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil {
			return nil, fmt.Errorf("%w: move %q: %v", shared.ErrInvalidFlag, s, err)
		}
		moves = append(moves, [2]int{f, t})
	}
	return moves, nil
}

// channelID resolves the channel for new items: the flag, then config, then the
// first channel on the profile.
func (r *Runner) channelID(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if r.config.Upload.ChannelID != "" {
		return r.config.Upload.ChannelID, nil
	}

	profile, err := r.client.GetProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if len(profile.Channels) == 0 {
		return "", fmt.Errorf("%w: no channel configured and the profile has none", shared.ErrMissingConfig)
	}
	return profile.Channels[0].ID, nil
}
