package tasks

import "fmt"

// ProgressUpdate is one step of a running bulk operation, sent to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase
	Step    int
	Total   int
	Message string
	Data    any // PlaylistExportResult for ExportPlaylist updates
}

// Phase identifies which stage of a bulk export an update belongs to.
type Phase int

const (
	FetchPlaylists Phase = iota
	ExportPlaylist
	WriteManifest
)

var phaseNames = [...]string{
	FetchPlaylists: "fetch_playlists",
	ExportPlaylist: "export_playlist",
	WriteManifest:  "write_manifest",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return ""
	}
	return phaseNames[p]
}

// update builds a ProgressUpdate in phase p with a formatted message.
func (p Phase) update(step, total int, data any, format string, args ...any) ProgressUpdate {
	return ProgressUpdate{Phase: p, Step: step, Total: total, Message: fmt.Sprintf(format, args...), Data: data}
}

// exportUpdate reports a finished playlist, successful or not.
func exportUpdate(step, total int, res PlaylistExportResult) ProgressUpdate {
	if res.Error != nil {
		return ExportPlaylist.update(step, total, res, "Failed to export %s: %v", res.PlaylistName, res.Error)
	}
	return ExportPlaylist.update(step, total, res, "Exported %s (%d items)", res.PlaylistName, res.Items)
}

// sendProgress delivers u unless prog is nil or its reader is behind.
func sendProgress(prog chan<- ProgressUpdate, u ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- u:
	default:
	}
}
