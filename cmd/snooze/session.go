package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/config"
	"github.com/robertmeta/snooze-cli/core"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/robertmeta/snooze-cli/store"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// session bundles everything a command needs to talk to the API.
type session struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store.Store
	client *api.Client
	app    *core.App
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(c, cfg)
	if err != nil {
		return nil, err
	}

	s, err := getStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithLogger(logger),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		store:  s,
		client: client,
		app:    core.NewApp(client, s, logger),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Store.Path = c.String("db")
	}
	if c.IsSet("base-url") {
		cfg.API.BaseURL = c.String("base-url")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) (zerolog.Logger, error) {
	level, err := cfg.Log.ZerologLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter}).
		Level(level).
		With().Timestamp().
		Logger(), nil
}

func getStore(dbPath string) (*store.Store, error) {
	if dbPath != ":memory:" {
		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, nil
}

func outputJSON(c *cli.Context, v interface{}) error {
	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var re *api.RemoteError
	switch {
	case api.IsAuthError(err), errors.Is(err, core.ErrNotLoggedIn):
		return ExitAuthError
	case errors.As(err, &re):
		if re.StatusCode == http.StatusUnauthorized {
			return ExitAuthError
		}
		return ExitDataError
	case errors.Is(err, core.ErrStoryNotFound), errors.Is(err, model.ErrMalformedURL):
		return ExitDataError
	}
	return ExitGeneralError
}

// fail wraps err for urfave/cli with the matching exit status.
func fail(err error) error {
	return cli.Exit(err.Error(), exitCode(err))
}

func usage(c *cli.Context) error {
	return cli.Exit(fmt.Sprintf("Usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage), ExitUsageError)
}

// storyView is a story as printed by the CLI.
type storyView struct {
	*model.Story
	Hostname string `json:"hostname,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
	Own      bool   `json:"own,omitempty"`
}

func viewStories(user *model.User, stories []*model.Story) []storyView {
	views := make([]storyView, 0, len(stories))
	for _, st := range stories {
		views = append(views, viewStory(user, st))
	}
	return views
}

func viewStory(user *model.User, st *model.Story) storyView {
	v := storyView{Story: st}
	if host, err := st.HostName(); err == nil {
		v.Hostname = host
	}
	if user != nil {
		v.Favorite = user.IsFavorite(st)
		v.Own = user.IsOwnStory(st)
	}
	return v
}
