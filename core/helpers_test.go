package core

import (
	"context"
	"errors"
	"testing"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/api/apitest"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/stretchr/testify/require"
)

// stubAPI answers every call with canned results. Unset functions fail.
type stubAPI struct {
	listStories    func(p api.ListParams) ([]*model.Story, error)
	createStory    func(token string, data model.StoryData) (*model.Story, error)
	deleteStory    func(token, id string) error
	signup         func(username, password, name string) (*model.User, error)
	login          func(username, password string) (*model.User, error)
	getUser        func(token, username string) (*model.User, error)
	addFavorite    func(token, username, id string) error
	removeFavorite func(token, username, id string) error
}

var errNotStubbed = errors.New("not stubbed")

func (s *stubAPI) ListStories(_ context.Context, p api.ListParams) ([]*model.Story, error) {
	if s.listStories == nil {
		return nil, errNotStubbed
	}
	return s.listStories(p)
}

func (s *stubAPI) CreateStory(_ context.Context, token string, data model.StoryData) (*model.Story, error) {
	if s.createStory == nil {
		return nil, errNotStubbed
	}
	return s.createStory(token, data)
}

func (s *stubAPI) DeleteStory(_ context.Context, token, id string) error {
	if s.deleteStory == nil {
		return errNotStubbed
	}
	return s.deleteStory(token, id)
}

func (s *stubAPI) Signup(_ context.Context, username, password, name string) (*model.User, error) {
	if s.signup == nil {
		return nil, errNotStubbed
	}
	return s.signup(username, password, name)
}

func (s *stubAPI) Login(_ context.Context, username, password string) (*model.User, error) {
	if s.login == nil {
		return nil, errNotStubbed
	}
	return s.login(username, password)
}

func (s *stubAPI) GetUser(_ context.Context, token, username string) (*model.User, error) {
	if s.getUser == nil {
		return nil, errNotStubbed
	}
	return s.getUser(token, username)
}

func (s *stubAPI) AddFavorite(_ context.Context, token, username, id string) error {
	if s.addFavorite == nil {
		return errNotStubbed
	}
	return s.addFavorite(token, username, id)
}

func (s *stubAPI) RemoveFavorite(_ context.Context, token, username, id string) error {
	if s.removeFavorite == nil {
		return errNotStubbed
	}
	return s.removeFavorite(token, username, id)
}

// memCredentials is an in-memory CredentialStore.
type memCredentials struct {
	creds   model.Credentials
	saveErr error
	loadErr error
	saves   int
	clears  int
}

func (m *memCredentials) SaveCredentials(c model.Credentials) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.creds = c
	return nil
}

func (m *memCredentials) LoadCredentials() (model.Credentials, error) {
	return m.creds, m.loadErr
}

func (m *memCredentials) ClearCredentials() error {
	m.clears++
	m.creds = model.Credentials{}
	return nil
}

func newFakeServer(t *testing.T) (*apitest.Server, *api.Client) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL())
	require.NoError(t, err)
	return srv, client
}

func storyIDs(stories []*model.Story) []string {
	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	return ids
}

func assertUniqueIDs(t *testing.T, stories []*model.Story) {
	t.Helper()
	seen := make(map[string]bool)
	for _, s := range stories {
		require.False(t, seen[s.ID], "duplicate story ID %s", s.ID)
		seen[s.ID] = true
	}
}
