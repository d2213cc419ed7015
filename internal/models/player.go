package models

// CollectionKind says whether a player configuration is for one media item or a playlist.
type CollectionKind int

const (
	MediaCollection CollectionKind = iota
	PlaylistCollection
)

func (k CollectionKind) String() string {
	switch k {
	case MediaCollection:
		return "media"
	case PlaylistCollection:
		return "playlists"
	default:
		return ""
	}
}

// Collection identifies what a player configuration is built for.
type Collection struct {
	Kind CollectionKind
	ID   string
}

// ConfigurationItem is one media item in a player configuration, pointing at its manifest.
type ConfigurationItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PlaylistURL string `json:"playlistUrl"`
}

// Fields returns the item's descriptive metadata under its JSON names.
func (i ConfigurationItem) Fields() Fields {
	return Fields{
		"id":          i.ID,
		"title":       i.Title,
		"description": i.Description,
		"playlistUrl": i.PlaylistURL,
	}
}

// PlayerConfiguration is the response of the /media/{id}/jwp and /playlists/{id}/jwp endpoints.
type PlayerConfiguration struct {
	MediaItems []ConfigurationItem `json:"mediaItems"`
}

// Manifest is the document behind a playlistUrl. Each playlist element is one playable rendition.
type Manifest struct {
	Title    string   `json:"title,omitempty"`
	Playlist []Fields `json:"playlist"`
}
