package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

func playlistPath(id string) string {
	return "/api/playlists/" + url.PathEscape(id)
}

func (c *Client) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var playlist models.Playlist
	if err := c.doRequest(ctx, http.MethodGet, playlistPath(id), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ListPlaylists fetches the first page of playlists matching q.
func (c *Client) ListPlaylists(ctx context.Context, q models.SearchQuery) (*models.ListResponse[models.Playlist], error) {
	var page models.ListResponse[models.Playlist]
	if err := c.doRequest(ctx, http.MethodGet, withQuery("/api/playlists/", q.Values()), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, create models.PlaylistCreate) (*models.Playlist, error) {
	if create.ChannelID == "" {
		return nil, fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	var playlist models.Playlist
	if err := c.doRequest(ctx, http.MethodPost, "/api/playlists/", create, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PatchPlaylist sends a partial update. The body always carries the playlist id.
func (c *Client) PatchPlaylist(ctx context.Context, id string, fields models.Fields) (*models.Playlist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	body := models.Merge(fields, models.Fields{"id": id})

	var playlist models.Playlist
	if err := c.doRequest(ctx, http.MethodPatch, playlistPath(id), body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SetPlaylistOrder replaces the playlist's media order.
func (c *Client) SetPlaylistOrder(ctx context.Context, id string, mediaIDs []string) error {
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	_, err := c.PatchPlaylist(ctx, id, models.Fields{"mediaIds": mediaIDs})
	return err
}

func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	return c.doRequest(ctx, http.MethodDelete, playlistPath(id), nil, nil)
}

func (c *Client) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	var channel models.Channel
	if err := c.doRequest(ctx, http.MethodGet, "/api/channels/"+url.PathEscape(id), nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (c *Client) ListChannels(ctx context.Context) (*models.ListResponse[models.Channel], error) {
	var page models.ListResponse[models.Channel]
	if err := c.doRequest(ctx, http.MethodGet, "/api/channels/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
