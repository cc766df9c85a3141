package core

import (
	"context"
	"fmt"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/rs/zerolog"
)

// State is the session state of an App.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// App owns the state of one client session: the story list and the
// current user, if any.
type App struct {
	client API
	creds  CredentialStore
	logger zerolog.Logger

	// Stories is nil until Start or RefreshStories succeeds.
	Stories *StoryList
	// User is nil while Anonymous.
	User *model.User
}

// NewApp creates an anonymous App.
func NewApp(client API, creds CredentialStore, logger zerolog.Logger) *App {
	return &App{
		client: client,
		creds:  creds,
		logger: logger,
	}
}

// State reports whether a user is logged in.
func (a *App) State() State {
	if a.User != nil {
		return Authenticated
	}
	return Anonymous
}

// Start restores a remembered session, then fetches the story list.
// The list is fetched whether or not a session was restored; only a
// failure to fetch it is returned.
func (a *App) Start(ctx context.Context, p api.ListParams) error {
	ctx = a.logger.WithContext(ctx)
	a.logger.Debug().Msg("start")

	if a.Restore(ctx) {
		a.logger.Debug().Str("username", a.User.Username).Msg("restored session")
	}
	return a.RefreshStories(ctx, p)
}

// Restore tries to log in with the stored credentials. It returns false,
// leaving the current session untouched, when that is not possible.
func (a *App) Restore(ctx context.Context) bool {
	ctx = a.logger.WithContext(ctx)

	creds, err := a.creds.LoadCredentials()
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to read stored credentials")
		return false
	}
	if !creds.Valid() {
		return false
	}

	user, ok := LoginViaStoredCredentials(ctx, a.client, creds)
	if !ok {
		return false
	}
	a.User = user
	return true
}

// RefreshStories replaces the story list with a fresh copy from the API.
func (a *App) RefreshStories(ctx context.Context, p api.ListParams) error {
	list, err := FetchStoryList(a.logger.WithContext(ctx), a.client, p)
	if err != nil {
		return fmt.Errorf("failed to fetch stories: %w", err)
	}
	a.Stories = list
	return nil
}

// Login authenticates and, once the credentials are persisted, makes the
// user current.
func (a *App) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := Login(a.logger.WithContext(ctx), a.client, username, password)
	if err != nil {
		return nil, err
	}
	if err := a.authenticate(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Signup registers a new account and, once the credentials are persisted,
// makes it current.
func (a *App) Signup(ctx context.Context, username, password, name string) (*model.User, error) {
	user, err := Signup(a.logger.WithContext(ctx), a.client, username, password, name)
	if err != nil {
		return nil, err
	}
	if err := a.authenticate(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *App) authenticate(user *model.User) error {
	creds := model.Credentials{Token: user.LoginToken, Username: user.Username}
	if err := a.creds.SaveCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	a.User = user
	a.logger.Debug().Str("username", user.Username).Msg("logged in")
	return nil
}

// Logout forgets the current user and clears the stored credentials.
func (a *App) Logout() error {
	a.User = nil
	if err := a.creds.ClearCredentials(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	a.logger.Debug().Msg("logged out")
	return nil
}

// RequireUser returns the current user or ErrNotLoggedIn.
func (a *App) RequireUser() (*model.User, error) {
	if a.User == nil {
		return nil, ErrNotLoggedIn
	}
	return a.User, nil
}

// FindStory looks a story up in the story list, then in the current
// user's favorites and own stories.
func (a *App) FindStory(id string) (*model.Story, error) {
	if a.Stories != nil {
		if s := a.Stories.Find(id); s != nil {
			return s, nil
		}
	}
	if a.User != nil {
		if s := model.FindStory(a.User.Favorites, id); s != nil {
			return s, nil
		}
		if s := model.FindStory(a.User.OwnStories, id); s != nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
}

// AddStory submits a story as the current user.
func (a *App) AddStory(ctx context.Context, data model.StoryData) (*model.Story, error) {
	user, err := a.RequireUser()
	if err != nil {
		return nil, err
	}
	if a.Stories == nil {
		a.Stories = NewStoryList(a.client, nil)
	}
	return a.Stories.AddStory(a.logger.WithContext(ctx), user, data)
}

// RemoveStory deletes one of the current user's stories.
func (a *App) RemoveStory(ctx context.Context, id string) error {
	user, err := a.RequireUser()
	if err != nil {
		return err
	}
	if a.Stories == nil {
		a.Stories = NewStoryList(a.client, nil)
	}
	return a.Stories.RemoveStory(a.logger.WithContext(ctx), user, id)
}

// SetFavorite favorites or unfavorites a story for the current user.
func (a *App) SetFavorite(ctx context.Context, id string, favorite bool) (*model.Story, error) {
	user, err := a.RequireUser()
	if err != nil {
		return nil, err
	}
	story, err := a.FindStory(id)
	if err != nil {
		return nil, err
	}

	ctx = a.logger.WithContext(ctx)
	if favorite {
		err = AddFavorite(ctx, a.client, user, story)
	} else {
		err = RemoveFavorite(ctx, a.client, user, story)
	}
	if err != nil {
		return nil, err
	}
	return story, nil
}
