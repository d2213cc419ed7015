package tasks

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Source loads a playlist with its media in playlist order.
type Source interface {
	Playlist(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error)

func (f SourceFunc) Playlist(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error) {
	return f(ctx, id)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format
	OutputDir  string           // Base output directory (default: mediactl_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 5, max 10)
	RateLimit  float64          // Playlist fetches per second (default: 5)
	Logger     *log.Logger
}

// PlaylistExportResult is the outcome of one playlist.
type PlaylistExportResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Items        int    `json:"items"`
	File         string `json:"file,omitempty"`
	Success      bool   `json:"success"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`

	index int
}

// BulkExportResult summarizes a bulk export. Results follow the order of the
// requested ids.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	Format            formatter.Format       `json:"format"`
	OutputDirectory   string                 `json:"output_directory"`
	ExportedAt        time.Time              `json:"exported_at"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// exportJob is one fetched playlist, or the error that kept it from being fetched.
type exportJob struct {
	index    int
	id       string
	playlist *models.Playlist
	items    []models.MediaItem
	err      error
}

// BulkExport exports playlists concurrently with rate limiting and progress tracking.
//
// Partial failures are recorded per playlist. The returned error is non-nil only
// when the output directory or manifest cannot be written, or ctx ends first.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src Source,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mediactl_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, FetchPlaylists.update(i+1, len(ids), nil, "Fetching playlist %s...", id))
			playlist, items, err := src.Playlist(ctx, id)
			jobs <- exportJob{index: i, id: id, playlist: playlist, items: items, err: err}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
			result.FailedExports++
			logger.Warn("playlist export failed", "id", res.PlaylistID, "error", res.Error)
			sendProgress(prog, exportUpdate(completed, len(ids), res))
		} else {
			result.SuccessfulExports++
			logger.Debug("playlist exported", "id", res.PlaylistID, "file", res.File)
			sendProgress(prog, exportUpdate(completed, len(ids), res))
		}
		result.Results = append(result.Results, res)
	}
	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int { return cmp.Compare(a.index, b.index) })

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", completed, len(ids), err)
	}

	result.ExportedAt = time.Now()
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	sendProgress(prog, WriteManifest.update(1, 1, nil, "Writing manifest to %s", manifestPath))
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker renders and writes playlists from the jobs channel. It is the only
// sender on results and keeps draining jobs after ctx is done, so results closes
// only once the producer has closed jobs.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		switch {
		case job.err != nil:
			results <- PlaylistExportResult{
				index:        job.index,
				PlaylistID:   job.id,
				PlaylistName: fmt.Sprintf("Unknown (%s)", job.id),
				Error:        fmt.Errorf("failed to fetch playlist: %w", job.err),
			}
		case ctx.Err() != nil:
			continue
		default:
			results <- exportPlaylist(job, opts)
		}
	}
}

// exportPlaylist writes one playlist to {OutputDir}/{id}.{ext}.
func exportPlaylist(j exportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		index:        j.index,
		PlaylistID:   j.playlist.ID,
		PlaylistName: j.playlist.Title,
		Items:        len(j.items),
	}

	data, err := formatter.RenderPlaylist(opts.Format, j.playlist, j.items)
	if err != nil {
		result.Error = fmt.Errorf("%s render failed: %w", opts.Format, err)
		return result
	}

	path := filepath.Join(opts.OutputDir, j.playlist.ID+"."+opts.Format.Ext())
	written, err := formatter.WriteExport(data, path, j.playlist.ID, opts.Format)
	if err != nil {
		result.Error = err
		return result
	}

	result.File = written
	result.Success = true
	return result
}
