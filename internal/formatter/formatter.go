// package formatter renders media, playlists and playback entries as CSV, Markdown, YAML or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/playback"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Format names an output format accepted by --format.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	YAML     Format = "yaml"
	JSON     Format = "json"
)

// ParseFormat validates a --format value. Empty means [Text].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return Text, nil
	case Text, CSV, Markdown, YAML, JSON:
		return f, nil
	case "md":
		return Markdown, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv, markdown, yaml or json)", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// MediaToCSV converts media items to CSV with columns: ID, Title, Type, Duration, PublishedAt, Downloadable
func MediaToCSV(items []models.MediaItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Type", "Duration", "PublishedAt", "Downloadable"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.ID,
			item.Title,
			item.Type,
			strconv.FormatFloat(item.Duration, 'f', -1, 64),
			item.PublishedAt,
			strconv.FormatBool(item.Downloadable),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// MediaToText lists media items one per line.
func MediaToText(items []models.MediaItem) ([]byte, error) {
	var buf bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&buf, "%s\t%s\t%s\n", item.ID, item.Title, FormatDuration(item.Duration))
	}
	return buf.Bytes(), nil
}

// PlaylistToMarkdown renders a playlist and its media as a Markdown document.
func PlaylistToMarkdown(playlist *models.Playlist, items []models.MediaItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Title)

	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}
	if playlist.Channel != nil && playlist.Channel.Title != "" {
		fmt.Fprintf(&buf, "**Channel**: %s\n", playlist.Channel.Title)
	}
	fmt.Fprintf(&buf, "**Items**: %d\n\n", len(items))

	buf.WriteString("## Media\n\n")
	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, item.Title, FormatDuration(item.Duration))
	}

	return buf.Bytes(), nil
}

// PlaylistToText renders a playlist and its media as plain text.
func PlaylistToText(playlist *models.Playlist, items []models.MediaItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Title)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Items: %d\n\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, item.Title, item.ID)
	}

	return buf.Bytes(), nil
}

// EntriesToText lists playback entries in play order.
func EntriesToText(entries []playback.Entry) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s\t%s\n", i+1, e.Title(), e.File())
	}
	return buf.Bytes(), nil
}

// AnalyticsToText draws daily views as a bar chart scaled to width columns.
func AnalyticsToText(a *models.Analytics, width int) ([]byte, error) {
	if width <= 0 {
		width = 40
	}

	peak := 0
	for _, d := range a.ViewsPerDay {
		peak = max(peak, d.Views)
	}

	var buf bytes.Buffer
	for _, d := range a.ViewsPerDay {
		bar := 0
		if peak > 0 {
			bar = d.Views * width / peak
		}
		fmt.Fprintf(&buf, "%s %s %d\n", d.Date, strings.Repeat("#", bar), d.Views)
	}
	fmt.Fprintf(&buf, "Total: %d\n", a.TotalViews())
	return buf.Bytes(), nil
}

// ToYAML encodes v as YAML using its JSON field names.
func ToYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to write YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to write YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPlaylist renders a playlist in the given format.
func RenderPlaylist(f Format, playlist *models.Playlist, items []models.MediaItem) ([]byte, error) {
	switch f {
	case CSV:
		return MediaToCSV(items)
	case Markdown:
		return PlaylistToMarkdown(playlist, items)
	case YAML:
		return ToYAML(map[string]any{"playlist": playlist, "media": items})
	case JSON:
		return shared.MarshalJSON(map[string]any{"playlist": playlist, "media": items}, true)
	default:
		return PlaylistToText(playlist, items)
	}
}

// RenderMedia renders a list of media items in the given format.
func RenderMedia(f Format, items []models.MediaItem) ([]byte, error) {
	switch f {
	case CSV:
		return MediaToCSV(items)
	case Markdown:
		return PlaylistToMarkdown(&models.Playlist{Title: "Media"}, items)
	case YAML:
		return ToYAML(items)
	case JSON:
		return shared.MarshalJSON(items, true)
	default:
		return MediaToText(items)
	}
}

// WriteExport writes data to path, creating parent directories.
//
// Defaults to {base}.{ext} in the working directory.
func WriteExport(data []byte, path, base string, f Format) (string, error) {
	if path == "" {
		path = base + "." + f.Ext()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}
