package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
)

var _ list.Item = mediaItem{}

// mediaItem wraps [models.MediaItem] to implement [list.Item].
type mediaItem struct {
	media models.MediaItem
}

func (i mediaItem) FilterValue() string { return i.media.Title }
func (i mediaItem) Title() string       { return i.media.Title }
func (i mediaItem) Description() string {
	desc := fmt.Sprintf("%s • %s", formatter.FormatDuration(i.media.Duration), i.media.ID)
	if i.media.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.media.Description)
	}
	return desc
}

func mediaListItems(media []models.MediaItem) []list.Item {
	items := make([]list.Item, len(media))
	for i, m := range media {
		items[i] = mediaItem{media: m}
	}
	return items
}
