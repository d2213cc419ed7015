package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/resource"
)

// ChannelList lists the channels visible to the token.
func (r *Runner) ChannelList(ctx context.Context, cmd *cli.Command) error {
	page, err := r.client.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	return r.render(cmd, page.Results, func(formatter.Format) ([]byte, error) {
		var buf bytes.Buffer
		for _, c := range page.Results {
			fmt.Fprintf(&buf, "%s\t%s\n", c.ID, c.Title)
		}
		return buf.Bytes(), nil
	})
}

// ChannelShow prints one channel.
func (r *Runner) ChannelShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	channel := resource.NewSingle(ctx, r.client.GetChannel, resource.Options[string]{
		Name:    "channel",
		Logger:  r.logger,
		Metrics: r.metrics,
	})
	channel.SetKey(id)
	channel.Wait()

	if err := channel.State().Err; err != nil {
		return fmt.Errorf("failed to get channel %s: %w", id, err)
	}

	c := channel.Data()
	return r.render(cmd, c, func(formatter.Format) ([]byte, error) {
		return fmt.Appendf(nil, "%s\n%s\n%s\n", c.Title, c.ID, c.Description), nil
	})
}
