package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

func mediaPath(id string) string {
	return "/api/media/" + url.PathEscape(id)
}

// GetMedia fetches a single media item.
func (c *Client) GetMedia(ctx context.Context, id string) (*models.MediaItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: media id", shared.ErrMissingArgument)
	}

	var item models.MediaItem
	if err := c.doRequest(ctx, http.MethodGet, mediaPath(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListMedia fetches one page of media items matching q.
func (c *Client) ListMedia(ctx context.Context, q models.MediaQuery) (*models.ListResponse[models.MediaItem], error) {
	var page models.ListResponse[models.MediaItem]
	if err := c.doRequest(ctx, http.MethodGet, withQuery("/api/media/", q.Values()), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllMedia follows next links until every page of q has been read.
func (c *Client) AllMedia(ctx context.Context, q models.MediaQuery) ([]models.MediaItem, error) {
	page, err := c.ListMedia(ctx, q)
	if err != nil {
		return nil, err
	}

	items := page.Results
	seen := map[string]bool{}
	for next := page.Next; next != ""; {
		if seen[next] {
			return nil, fmt.Errorf("%w: pagination loop at %s", shared.ErrAPIRequest, next)
		}
		seen[next] = true

		var p models.ListResponse[models.MediaItem]
		if err := c.doRequest(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		items = append(items, p.Results...)
		next = p.Next
	}
	return items, nil
}

// CreateMedia creates an empty media item in a channel.
func (c *Client) CreateMedia(ctx context.Context, create models.MediaCreate) (*models.MediaItem, error) {
	if create.ChannelID == "" {
		return nil, fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	var item models.MediaItem
	if err := c.doRequest(ctx, http.MethodPost, "/api/media/", create, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// PatchMedia sends a partial update. The body always carries the item id.
func (c *Client) PatchMedia(ctx context.Context, id string, fields models.Fields) (*models.MediaItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: media id", shared.ErrMissingArgument)
	}

	body := models.Merge(fields, models.Fields{"id": id})

	var item models.MediaItem
	if err := c.doRequest(ctx, http.MethodPatch, mediaPath(id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: media id", shared.ErrMissingArgument)
	}
	return c.doRequest(ctx, http.MethodDelete, mediaPath(id), nil, nil)
}

// GetUploadEndpoint asks for the item's transfer URL. The URL is empty until the
// server has provisioned it.
func (c *Client) GetUploadEndpoint(ctx context.Context, id string) (*models.UploadEndpoint, error) {
	var endpoint models.UploadEndpoint
	if err := c.doRequest(ctx, http.MethodGet, mediaPath(id)+"/upload", nil, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (c *Client) GetAnalytics(ctx context.Context, id string) (*models.Analytics, error) {
	var analytics models.Analytics
	if err := c.doRequest(ctx, http.MethodGet, mediaPath(id)+"/analytics", nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}
