package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

type mockSource struct {
	playlists map[string]*models.Playlist
	media     map[string][]models.MediaItem
	calls     atomic.Int32
}

func (m *mockSource) Playlist(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error) {
	m.calls.Add(1)
	p, ok := m.playlists[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return p, m.media[id], nil
}

func newMockSource(count int) (*mockSource, []string) {
	src := &mockSource{playlists: map[string]*models.Playlist{}, media: map[string][]models.MediaItem{}}
	ids := make([]string, count)
	for i := range count {
		id := fmt.Sprintf("playlist%d", i+1)
		ids[i] = id
		src.playlists[id] = &models.Playlist{ID: id, Title: fmt.Sprintf("Playlist %d", i+1)}
		src.media[id] = []models.MediaItem{
			{ID: id + "-a", Title: "Intro", Duration: 30},
			{ID: id + "-b", Title: "Outro", Duration: 90},
		}
	}
	return src, ids
}

func drain(ch chan ProgressUpdate) {
	go func() {
		for range ch {
		}
	}()
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name          string
		format        formatter.Format
		playlistCount int
		wantContent   string
	}{
		{name: "single playlist json export", format: formatter.JSON, playlistCount: 1, wantContent: `"playlist"`},
		{name: "multiple playlists csv export", format: formatter.CSV, playlistCount: 3, wantContent: "ID,Title,Type"},
		{name: "text export", format: formatter.Text, playlistCount: 2, wantContent: "Items: 2"},
		{name: "markdown export", format: formatter.Markdown, playlistCount: 1, wantContent: "## Media"},
		{name: "yaml export", format: formatter.YAML, playlistCount: 2, wantContent: "title: Intro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			src, ids := newMockSource(tt.playlistCount)

			progressCh := make(chan ProgressUpdate, 100)
			drain(progressCh)

			result, err := BulkExport(context.Background(), progressCh, src, ids, BulkExportOpts{
				Format:     tt.format,
				OutputDir:  tempDir,
				NumWorkers: 2,
				RateLimit:  100,
			})
			close(progressCh)

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, tt.playlistCount)
			}
			if result.SuccessfulExports != tt.playlistCount || result.FailedExports != 0 {
				t.Errorf("expected %d successes and no failures, got %d and %d", tt.playlistCount, result.SuccessfulExports, result.FailedExports)
			}

			for i, res := range result.Results {
				if res.PlaylistID != ids[i] {
					t.Errorf("result %d = %s, want %s", i, res.PlaylistID, ids[i])
				}
				want := filepath.Join(tempDir, ids[i]+"."+tt.format.Ext())
				if res.File != want {
					t.Errorf("expected file %s, got %s", want, res.File)
				}
				data, err := os.ReadFile(res.File)
				if err != nil {
					t.Fatalf("failed to read export: %v", err)
				}
				if !strings.Contains(string(data), tt.wantContent) {
					t.Errorf("expected %s export to contain %q, got %s", tt.format, tt.wantContent, data)
				}
			}

			manifestData, err := os.ReadFile(filepath.Join(tempDir, "export_manifest.json"))
			if err != nil {
				t.Fatalf("failed to read manifest: %v", err)
			}
			var manifest BulkExportResult
			if err := json.Unmarshal(manifestData, &manifest); err != nil {
				t.Fatalf("failed to parse manifest: %v", err)
			}
			if manifest.Format != tt.format {
				t.Errorf("manifest format = %s, want %s", manifest.Format, tt.format)
			}
			if manifest.TotalPlaylists != tt.playlistCount || len(manifest.Results) != tt.playlistCount {
				t.Errorf("manifest total = %d, want %d", manifest.TotalPlaylists, tt.playlistCount)
			}
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	tempDir := t.TempDir()
	src, _ := newMockSource(3)
	delete(src.playlists, "playlist2")

	result, err := BulkExport(context.Background(), nil, src, []string{"playlist1", "playlist2", "playlist3"}, BulkExportOpts{
		Format:     formatter.JSON,
		OutputDir:  tempDir,
		NumWorkers: 2,
		RateLimit:  100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 2 {
		t.Errorf("SuccessfulExports = %d, want 2", result.SuccessfulExports)
	}
	if result.FailedExports != 1 {
		t.Errorf("FailedExports = %d, want 1", result.FailedExports)
	}

	failed := result.Results[1]
	if failed.Success || failed.PlaylistID != "playlist2" {
		t.Fatalf("expected playlist2 to fail, got %+v", failed)
	}
	if !errors.Is(failed.Error, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", failed.Error)
	}
	if failed.ErrorMessage == "" {
		t.Error("failed result should carry its error message for the manifest")
	}
}

func TestBulkExport_SourceError(t *testing.T) {
	_, err := BulkExport(context.Background(), nil, nil, []string{"p1"}, BulkExportOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBulkExport_ContextCancellation(t *testing.T) {
	src, ids := newMockSource(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := BulkExport(ctx, nil, src, ids, BulkExportOpts{OutputDir: t.TempDir(), NumWorkers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("result should not be nil")
	}
	if result.ManifestPath != "" {
		t.Errorf("expected no manifest for an interrupted export, got %s", result.ManifestPath)
	}
	if src.calls.Load() != 0 {
		t.Errorf("expected no fetches after cancellation, got %d", src.calls.Load())
	}
}

func TestBulkExport_CancelDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	big := make([]models.MediaItem, 20000)
	for i := range big {
		big[i] = models.MediaItem{ID: fmt.Sprintf("m%d", i), Title: "Clip", Duration: 1}
	}

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i+1)
	}
	last := ids[len(ids)-1]

	src := SourceFunc(func(ctx context.Context, id string) (*models.Playlist, []models.MediaItem, error) {
		if id == last {
			cancel()
			time.Sleep(20 * time.Millisecond)
			return nil, nil, ctx.Err()
		}
		return &models.Playlist{ID: id, Title: id}, big, nil
	})

	result, err := BulkExport(ctx, nil, src, ids, BulkExportOpts{
		OutputDir:  t.TempDir(),
		NumWorkers: 1,
		RateLimit:  1e9,
		Format:     formatter.CSV,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.ManifestPath != "" {
		t.Errorf("expected no manifest, got %s", result.ManifestPath)
	}

	var sawFetchFailure bool
	for _, r := range result.Results {
		if r.PlaylistID == last && r.Error != nil {
			sawFetchFailure = true
		}
	}
	if !sawFetchFailure {
		t.Errorf("expected the in-flight fetch failure to be reported, got %d results", len(result.Results))
	}
}

func TestBulkExport_DefaultOptions(t *testing.T) {
	t.Chdir(t.TempDir())
	src, ids := newMockSource(1)

	result, err := BulkExport(context.Background(), nil, src, ids, BulkExportOpts{})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(result.OutputDirectory), "mediactl_export_") {
		t.Errorf("default output directory should start with 'mediactl_export_', got: %s", result.OutputDirectory)
	}
	if result.Format != formatter.JSON {
		t.Errorf("default format = %s, want json", result.Format)
	}
	if _, err := os.Stat(filepath.Join(result.OutputDirectory, "playlist1.json")); err != nil {
		t.Errorf("expected default json export: %v", err)
	}
}

func TestBulkExport_Progress(t *testing.T) {
	src, ids := newMockSource(2)
	progressCh := make(chan ProgressUpdate, 100)

	_, err := BulkExport(context.Background(), progressCh, src, ids, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	close(progressCh)

	phases := map[Phase]int{}
	for u := range progressCh {
		phases[u.Phase]++
		if u.Total == 0 {
			t.Errorf("expected total on %s update", u.Phase)
		}
	}

	if phases[FetchPlaylists] != 2 {
		t.Errorf("expected 2 fetch updates, got %d", phases[FetchPlaylists])
	}
	if phases[ExportPlaylist] != 2 {
		t.Errorf("expected 2 export updates, got %d", phases[ExportPlaylist])
	}
	if phases[WriteManifest] != 1 {
		t.Errorf("expected 1 manifest update, got %d", phases[WriteManifest])
	}
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylists: "fetch_playlists",
		ExportPlaylist: "export_playlist",
		WriteManifest:  "write_manifest",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
