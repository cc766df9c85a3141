package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
	ExitAuthError    = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(ExitGeneralError)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "snooze",
		Usage:   "A scriptable client for the Hack or Snooze story board",
		Version: "0.1.0",
		// Errors are reported by main, not by the cli package.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: $XDG_CONFIG_HOME/snooze-cli/config.yaml)",
				EnvVars: []string{"SNOOZE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Session database file path (overrides store.path)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "API base URL (overrides api.base_url)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "stories",
				Usage: "List stories",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   25,
						Usage:   "Maximum number of stories to return (0 for all)",
					},
					&cli.IntFlag{
						Name:    "offset",
						Aliases: []string{"o"},
						Value:   0,
						Usage:   "Offset for pagination",
					},
					&cli.IntFlag{
						Name:  "fetch",
						Usage: "Number of stories to request from the API (0 uses the server default)",
					},
					&cli.StringFlag{
						Name:    "since",
						Aliases: []string{"s"},
						Usage:   "Show stories since duration (e.g., 12h, 7d, 2w, 3m, 1y)",
					},
					&cli.StringFlag{
						Name:    "author",
						Aliases: []string{"a"},
						Usage:   "Filter by author",
					},
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Filter by the username that posted the story",
					},
				},
				Action: listStories,
			},
			{
				Name:      "show",
				Usage:     "Show story details",
				ArgsUsage: "<story-id>",
				Action:    showStory,
			},
			{
				Name:  "submit",
				Usage: "Submit a new story",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Story title"},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Story author"},
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Story URL"},
				},
				Action: submitStory,
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your stories",
				ArgsUsage: "<story-id>",
				Action:    deleteStory,
			},
			{
				Name:      "favorite",
				Usage:     "Add a story to your favorites",
				ArgsUsage: "<story-id>",
				Action:    setFavorite(true),
			},
			{
				Name:      "unfavorite",
				Usage:     "Remove a story from your favorites",
				ArgsUsage: "<story-id>",
				Action:    setFavorite(false),
			},
			{
				Name:   "favorites",
				Usage:  "List your favorite stories",
				Action: listFavorites,
			},
			{
				Name:   "mine",
				Usage:  "List the stories you submitted",
				Action: listOwnStories,
			},
			{
				Name:  "signup",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Account username"},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					passwordFlag(),
				},
				Action: signup,
			},
			{
				Name:  "login",
				Usage: "Log in and remember the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Account username"},
					passwordFlag(),
				},
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the remembered session",
				Action: logout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the current session",
				Action: whoami,
			},
			{
				Name:      "import-feed",
				Usage:     "Submit the items of an RSS/Atom feed as stories",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"m"},
						Usage:   "Submit at most this many items (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the stories that would be submitted",
					},
				},
				Action: importFeed,
			},
			{
				Name:      "import",
				Usage:     "Submit the links of an OPML file as stories",
				ArgsUsage: "<opml-file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the stories that would be submitted",
					},
				},
				Action: importOPML,
			},
			{
				Name:  "export",
				Usage: "Export stories to an OPML file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: stdout)",
					},
					&cli.BoolFlag{
						Name:  "favorites",
						Usage: "Export your favorites",
					},
					&cli.BoolFlag{
						Name:  "mine",
						Usage: "Export your own stories",
					},
				},
				Action: exportOPML,
			},
		},
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "Account password",
		EnvVars: []string{"SNOOZE_PASSWORD"},
	}
}
