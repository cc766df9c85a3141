// Package core holds the client-side domain model of snooze-cli and keeps it
// consistent with the remote story API.
//
// Aggregates in this package are not safe for concurrent mutation. Each
// operation runs to completion before the next one starts.
package core

import (
	"context"
	"errors"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/model"
)

var (
	// ErrNotLoggedIn is returned by operations that need an authenticated user.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrStoryNotFound is returned when a story ID is not known locally.
	ErrStoryNotFound = errors.New("story not found")
)

// API is the subset of the remote API the domain model uses.
// *api.Client implements it.
type API interface {
	ListStories(ctx context.Context, p api.ListParams) ([]*model.Story, error)
	CreateStory(ctx context.Context, token string, data model.StoryData) (*model.Story, error)
	DeleteStory(ctx context.Context, token, storyID string) error
	Signup(ctx context.Context, username, password, name string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, token, username string) (*model.User, error)
	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
}

// CredentialStore persists the session credentials between runs.
type CredentialStore interface {
	SaveCredentials(creds model.Credentials) error
	LoadCredentials() (model.Credentials, error)
	ClearCredentials() error
}

func requireToken(user *model.User) error {
	if user == nil || user.LoginToken == "" {
		return ErrNotLoggedIn
	}
	return nil
}
