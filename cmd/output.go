package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/shared"
)

// outputFormat resolves --json and --format. --json wins.
func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	if cmd.Bool("json") {
		return formatter.JSON, nil
	}
	return formatter.ParseFormat(cmd.String("format"))
}

// render writes value as JSON or YAML, or calls text for the remaining formats.
func (r *Runner) render(cmd *cli.Command, value any, text func(formatter.Format) ([]byte, error)) error {
	f, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	switch f {
	case formatter.JSON:
		return r.writeJSON(value, cmd.Bool("pretty"))
	case formatter.YAML:
		data, err := formatter.ToYAML(value)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	default:
		data, err := text(f)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: <%s> is required", shared.ErrMissingArgument, name)
	}
	return v, nil
}
