// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/plugify/internal/formatter"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the plugin HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the plugin HTTP server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides server.host)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand writes configuration and prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
					&cli.StringFlag{
						Name:  "public-url",
						Usage: "Public base URL written into server.public_url",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Port written into server.port",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Open the configured database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration after migrating",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "Spotify access token",
		Sources: cli.EnvVars("SPOTIFY_TOKEN"),
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and print an access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: defaultLoginTimeout,
					},
				},
				Action: r.SpotifyLogin,
			},
			{
				Name:   "me",
				Usage:  "Show the account the token belongs to",
				Flags:  []cli.Flag{tokenFlag()},
				Action: r.SpotifyMe,
			},
			{
				Name:   "playlists",
				Usage:  "List playlists (at most 500)",
				Flags:  append([]cli.Flag{tokenFlag()}, jsonFlags()...),
				Action: r.SpotifyPlaylists,
			},
			{
				Name:      "find",
				Usage:     "Find a playlist by exact name",
				Flags:     append([]cli.Flag{tokenFlag()}, jsonFlags()...),
				Arguments: []cli.Argument{&cli.StringArg{Name: "name", UsageText: "playlist name"}},
				Action:    r.SpotifyFind,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Flags: []cli.Flag{
					tokenFlag(),
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
				},
				Arguments: []cli.Argument{&cli.StringArg{Name: "name", UsageText: "playlist name"}},
				Action:    r.SpotifyCreate,
			},
			{
				Name:  "tracks",
				Usage: "List a playlist's tracks",
				Flags: []cli.Flag{
					tokenFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Arguments: []cli.Argument{&cli.StringArg{Name: "id", UsageText: "playlist id"}},
				Action:    r.SpotifyTracks,
			},
			{
				Name:  "search",
				Usage: "Search the catalog for tracks",
				Flags: append([]cli.Flag{
					tokenFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks (1-50)",
						Value: 10,
					},
				}, jsonFlags()...),
				Arguments: []cli.Argument{&cli.StringArg{Name: "query", UsageText: "search text"}},
				Action:    r.SpotifySearch,
			},
			{
				Name:      "add",
				Usage:     "Resolve titles via search and add them to a playlist",
				ArgsUsage: "<playlist id> <title>...",
				Flags:     []cli.Flag{tokenFlag()},
				Action:    r.SpotifyAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove track URIs from a playlist",
				ArgsUsage: "<playlist id> <track uri>...",
				Flags:     []cli.Flag{tokenFlag()},
				Action:    r.SpotifyRemove,
			},
		},
	}
}
