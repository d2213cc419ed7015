package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/services"
	"github.com/desertthunder/mediactl/internal/shared"
)

// APIGet issues a raw GET against the media API and prints the body.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	r.logger.Debug("raw api call", "method", "GET", "path", path)
	resp, err := r.api.Get(ctx, path)
	return r.printAPIResponse(resp, err, !cmd.Bool("json"))
}

// APIPost sends --data as a JSON body. The payload is checked locally so a typo
// never reaches the server.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	data := []byte(cmd.String("data"))
	switch {
	case len(data) == 0:
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	case !json.Valid(data):
		var probe any
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, json.Unmarshal(data, &probe))
	}

	r.logger.Debug("raw api call", "method", "POST", "path", path, "bytes", len(data))
	resp, err := r.api.Post(ctx, path, data)
	return r.printAPIResponse(resp, err, true)
}

func (r *Runner) printAPIResponse(resp *services.APIResponse, err error, pretty bool) error {
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, resp.Body)
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	r.writePlain("%s\n", resp.Body)
	return nil
}
