package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// PlayerConfiguration fetches the player configuration for a media item or playlist.
func (c *Client) PlayerConfiguration(ctx context.Context, collection models.Collection) (*models.PlayerConfiguration, error) {
	kind := collection.Kind.String()
	if kind == "" {
		return nil, fmt.Errorf("%w: collection kind %d", shared.ErrInvalidArgument, collection.Kind)
	}
	if collection.ID == "" {
		return nil, fmt.Errorf("%w: collection id", shared.ErrMissingArgument)
	}

	var config models.PlayerConfiguration
	endpoint := "/" + kind + "/" + url.PathEscape(collection.ID) + "/jwp"
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// FetchManifest fetches the rendition manifest at manifestURL.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) (*models.Manifest, error) {
	if manifestURL == "" {
		return nil, fmt.Errorf("%w: manifest url", shared.ErrMissingArgument)
	}

	var manifest *models.Manifest
	if err := c.doRequest(ctx, http.MethodGet, manifestURL, nil, &manifest); err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, fmt.Errorf("%w: manifest %s", shared.ErrEmptyResponse, manifestURL)
	}
	return manifest, nil
}
