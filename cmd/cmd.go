// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/formatter"
)

func outputFlags(defaultFormat formatter.Format) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, csv, markdown, yaml or json",
			Value:   string(defaultFormat),
		},
	}
}

func limitFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of results",
		Value: value,
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a configuration file from the template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recently applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// mediaCommand handles media item operations
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Media item operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List media items",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Search text"},
					&cli.StringFlag{Name: "channel", Usage: "Only media in this channel"},
					&cli.StringFlag{Name: "playlist", Usage: "Only media in this playlist"},
					&cli.StringFlag{Name: "ordering", Usage: "Sort field, prefix with - to reverse"},
					&cli.BoolFlag{Name: "all", Usage: "Follow pagination to the last page"},
				}, outputFlags(formatter.Text)...),
				Action: r.MediaList,
			},
			{
				Name:      "show",
				Usage:     "Show one media item",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(formatter.YAML),
				Action:    r.MediaShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a media item",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.MediaDelete,
			},
			{
				Name:      "play",
				Usage:     "Print the playback sequence for a media item",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     playFlags(),
				Action:    r.MediaPlay,
			},
			{
				Name:      "analytics",
				Usage:     "Show daily views for a media item",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "width", Usage: "Bar chart width", Value: 40},
				}, outputFlags(formatter.Text)...),
				Action: r.MediaAnalytics,
			},
		},
	}
}

func playFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "m3u",
			Usage: "Write an extended M3U playlist instead of a listing",
		},
		&cli.IntFlag{
			Name:  "select",
			Usage: "Index of the entry to start from",
		},
		&cli.BoolFlag{
			Name:  "omit-failed",
			Usage: "Skip items whose manifest cannot be fetched",
		},
	}, outputFlags(formatter.Text)...)
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Search text"},
				}, outputFlags(formatter.Text)...),
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its media",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the rendered playlist to this file",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Write the rendered playlist to {id}.{ext}",
					},
				}, outputFlags(formatter.Text)...),
				Action: r.PlaylistShow,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Playlist title", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Playlist description"},
					&cli.StringFlag{Name: "channel", Usage: "Channel ID, defaults to upload.channel_id"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "play",
				Usage:     "Print the playback sequence for a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     playFlags(),
				Action:    r.PlaylistPlay,
			},
			{
				Name:      "move",
				Usage:     "Move media within a playlist and save the final order once",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "move",
						Aliases:  []string{"m"},
						Usage:    "Move as from:to (zero-based), repeatable",
						Required: true,
					},
				},
				Action: r.PlaylistMove,
			},
			{
				Name:      "reorder",
				Usage:     "Reorder a playlist interactively",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Where to write logs while the UI is open",
						Value: "./tmp/mediactl-tui.log",
					},
				},
				Action: r.PlaylistReorder,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to a directory, one file per playlist",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every playlist",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory (default: mediactl_export_{timestamp})",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: text, csv, markdown, yaml or json",
						Value:   string(formatter.JSON),
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent export workers",
						Value:   5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlist fetches per second",
						Value: 5,
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// channelCommand handles channel operations
func channelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "channel",
		Usage: "Channel operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List channels",
				Flags:  outputFlags(formatter.Text),
				Action: r.ChannelList,
			},
			{
				Name:      "show",
				Usage:     "Show one channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(formatter.YAML),
				Action:    r.ChannelShow,
			},
		},
	}
}

// uploadCommand uploads one or more files
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload local files or blob URLs (file://, s3://) as new media items",
		ArgsUsage: "<file|blob-url>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Title, defaults to the file name"},
			&cli.StringFlag{Name: "description", Usage: "Description"},
			&cli.StringFlag{Name: "channel", Usage: "Channel ID, defaults to upload.channel_id or your first channel"},
			&cli.StringFlag{Name: "item", Usage: "Upload into an existing media item instead of creating one"},
			&cli.BoolFlag{Name: "publish", Aliases: []string{"p"}, Usage: "Publish the metadata once the transfer succeeds"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent uploads, defaults to upload.workers"},
			&cli.StringFlag{Name: "method", Usage: "Transfer method, POST or PUT"},
			&cli.BoolFlag{Name: "tui", Usage: "Follow a single upload interactively"},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI is open",
				Value: "./tmp/mediactl-tui.log",
			},
		},
		Action: r.Upload,
	}
}

// uploadsCommand reads the local upload journal
func uploadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "uploads",
		Usage: "Local upload journal",
		Commands: []*cli.Command{
			{
				Name:   "history",
				Usage:  "List recent uploads, newest first",
				Flags:  append([]cli.Flag{limitFlag(20)}, outputFlags(formatter.Text)...),
				Action: r.UploadsHistory,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the media API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
