package models

import (
	"net/url"
)

// MediaSource is one downloadable encoding of a media item.
type MediaSource struct {
	MimeType string `json:"mimeType"`
	URL      string `json:"url"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// MediaItem is a media resource as returned by /api/media/.
type MediaItem struct {
	URL                 string        `json:"url,omitempty"`
	ID                  string        `json:"id,omitempty"`
	Title               string        `json:"title"`
	Description         string        `json:"description,omitempty"`
	Duration            float64       `json:"duration,omitempty"`
	Type                string        `json:"type,omitempty"`
	PublishedAt         string        `json:"publishedAt,omitempty"`
	UpdatedAt           string        `json:"updatedAt,omitempty"`
	CreatedAt           string        `json:"createdAt,omitempty"`
	Language            string        `json:"language,omitempty"`
	Copyright           string        `json:"copyright,omitempty"`
	Tags                []string      `json:"tags,omitempty"`
	PosterImageURL      string        `json:"posterImageUrl,omitempty"`
	Sources             []MediaSource `json:"sources,omitempty"`
	EmbedURL            string        `json:"embedUrl,omitempty"`
	Downloadable        bool          `json:"downloadable,omitempty"`
	ChannelID           string        `json:"channelId,omitempty"`
	LegacyStatisticsURL string        `json:"legacyStatisticsUrl,omitempty"`
}

// MediaCreate is the body of a media create request.
type MediaCreate struct {
	ChannelID   string   `json:"channelId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Copyright   string   `json:"copyright,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Channel is a channel resource.
type Channel struct {
	URL         string `json:"url,omitempty"`
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Playlist is a playlist resource. MediaIDs is only present on detail responses.
type Playlist struct {
	URL         string   `json:"url,omitempty"`
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Channel     *Channel `json:"channel,omitempty"`
	MediaURL    string   `json:"mediaUrl,omitempty"`
	MediaIDs    []string `json:"mediaIds,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// PlaylistCreate is the body of a playlist create request.
type PlaylistCreate struct {
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Profile describes the user the API token belongs to.
type Profile struct {
	IsAnonymous    bool      `json:"isAnonymous"`
	Username       string    `json:"username,omitempty"`
	DisplayName    string    `json:"displayName,omitempty"`
	AvatarImageURL string    `json:"avatarImageUrl,omitempty"`
	Channels       []Channel `json:"channels"`
}

// UploadEndpoint is where a media item's binary is sent. An empty URL means the server has not provisioned it yet.
type UploadEndpoint struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Ready reports whether the endpoint can accept a transfer.
func (e *UploadEndpoint) Ready() bool {
	return e != nil && e.URL != ""
}

// DailyViews is one day of a media item's analytics.
type DailyViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// Analytics is the response of /api/media/{id}/analytics.
type Analytics struct {
	ViewsPerDay []DailyViews `json:"views_per_day"`
}

// TotalViews sums the daily counts.
func (a *Analytics) TotalViews() int {
	total := 0
	for _, d := range a.ViewsPerDay {
		total += d.Views
	}
	return total
}

// ListResponse is one page of a list endpoint.
type ListResponse[T any] struct {
	Results  []T    `json:"results"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// MediaQuery filters the media list. It is comparable so it can key a list fetch.
type MediaQuery struct {
	Search   string
	Ordering string
	Channel  string
	Playlist string
}

// Values encodes the non-empty filters as query parameters.
func (q MediaQuery) Values() url.Values {
	return encode(map[string]string{
		"search":   q.Search,
		"ordering": q.Ordering,
		"channel":  q.Channel,
		"playlist": q.Playlist,
	})
}

// SearchQuery filters the playlist and channel lists.
type SearchQuery struct {
	Search string
}

// Values encodes the non-empty filters as query parameters.
func (q SearchQuery) Values() url.Values {
	return encode(map[string]string{"search": q.Search})
}

func encode(params map[string]string) url.Values {
	v := url.Values{}
	for key, value := range params {
		if value != "" {
			v.Set(key, value)
		}
	}
	return v
}
