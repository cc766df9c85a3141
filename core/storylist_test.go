package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoryList_DropsDuplicateIDs(t *testing.T) {
	list := NewStoryList(&stubAPI{}, []*model.Story{
		{ID: "1", Title: "first"},
		{ID: "2"},
		{ID: "1", Title: "again"},
	})

	require.Equal(t, 2, list.Len())
	assert.Equal(t, "first", list.Find("1").Title)
}

func TestFetchStoryList(t *testing.T) {
	srv, client := newFakeServer(t)
	a := srv.AddStory("alice", "A", "Ann", "https://a.test/")
	b := srv.AddStory("bob", "B", "Ben", "https://b.test/")

	list, err := FetchStoryList(context.Background(), client, api.ListParams{})
	require.NoError(t, err)

	if diff := cmp.Diff([]string{b, a}, storyIDs(list.Stories())); diff != "" {
		t.Errorf("story order mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchStoryList_RemoteError(t *testing.T) {
	srv, client := newFakeServer(t)
	srv.Fail(http.MethodGet, "/stories", http.StatusBadGateway)

	list, err := FetchStoryList(context.Background(), client, api.ListParams{})
	require.Error(t, err)
	assert.Nil(t, list)
	assert.Equal(t, http.StatusBadGateway, api.StatusCode(err))
	assert.Equal(t, 1, srv.Calls(http.MethodGet, "/stories"), "no retry")
}

// An empty list plus a stubbed create response yields one story in both
// the list and the user's own stories.
func TestStoryList_AddStory_Stub(t *testing.T) {
	user := &model.User{Username: "ada", LoginToken: "tok"}
	stub := &stubAPI{
		createStory: func(token string, data model.StoryData) (*model.Story, error) {
			assert.Equal(t, "tok", token)
			assert.Equal(t, model.StoryData{Title: "T", Author: "A", URL: "https://x.test/p"}, data)
			return &model.Story{
				ID:       "1",
				Title:    "T",
				Author:   "A",
				URL:      "https://x.test/p",
				Username: user.Username,
			}, nil
		},
	}
	list := NewStoryList(stub, nil)

	story, err := list.AddStory(context.Background(), user, model.StoryData{Title: "T", Author: "A", URL: "https://x.test/p"})
	require.NoError(t, err)
	assert.Equal(t, "1", story.ID)

	require.Equal(t, 1, list.Len())
	require.Len(t, user.OwnStories, 1)
	assert.Equal(t, "1", list.Stories()[0].ID)
	assert.Equal(t, "1", user.OwnStories[0].ID)
}

func TestStoryList_AddStory_InsertsAtFront(t *testing.T) {
	srv, client := newFakeServer(t)
	token := srv.AddUser("ada", "pw", "Ada")
	srv.AddStory("bob", "Old", "B", "https://b.test/")

	list, err := FetchStoryList(context.Background(), client, api.ListParams{})
	require.NoError(t, err)
	user := &model.User{Username: "ada", LoginToken: token, OwnStories: []*model.Story{{ID: "older"}}}

	story, err := list.AddStory(context.Background(), user, model.StoryData{Title: "New", Author: "A", URL: "https://x.test/"})
	require.NoError(t, err)

	assert.Equal(t, story.ID, list.Stories()[0].ID)
	assert.Equal(t, story.ID, user.OwnStories[0].ID)
	assert.Equal(t, 2, list.Len())
	assert.Len(t, user.OwnStories, 2)
	assertUniqueIDs(t, list.Stories())
}

func TestStoryList_AddStory_DuplicateIDStaysUnique(t *testing.T) {
	user := &model.User{Username: "ada", LoginToken: "tok"}
	stub := &stubAPI{
		createStory: func(string, model.StoryData) (*model.Story, error) {
			return &model.Story{ID: "1", Title: "server copy"}, nil
		},
	}
	list := NewStoryList(stub, []*model.Story{{ID: "2"}, {ID: "1", Title: "stale"}})

	_, err := list.AddStory(context.Background(), user, model.StoryData{Title: "T", Author: "A", URL: "https://x.test/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, storyIDs(list.Stories()))
	assert.Equal(t, "server copy", list.Find("1").Title)
	assertUniqueIDs(t, list.Stories())
}

func TestStoryList_AddStory_FailureLeavesStateUnchanged(t *testing.T) {
	srv, client := newFakeServer(t)
	token := srv.AddUser("ada", "pw", "Ada")
	list := NewStoryList(client, nil)
	user := &model.User{Username: "ada", LoginToken: token}

	// Missing fields are rejected by the server
	_, err := list.AddStory(context.Background(), user, model.StoryData{Title: "only a title"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	assert.Zero(t, list.Len())
	assert.Empty(t, user.OwnStories)
}

func TestStoryList_AddStory_RequiresToken(t *testing.T) {
	stub := &stubAPI{}
	list := NewStoryList(stub, nil)

	_, err := list.AddStory(context.Background(), &model.User{Username: "ada"}, model.StoryData{Title: "T", Author: "A", URL: "https://x.test/"})
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = list.AddStory(context.Background(), nil, model.StoryData{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStoryList_RemoveStory(t *testing.T) {
	srv, client := newFakeServer(t)
	token := srv.AddUser("ada", "pw", "Ada")
	other := srv.AddStory("bob", "Other", "B", "https://b.test/")

	list, err := FetchStoryList(context.Background(), client, api.ListParams{})
	require.NoError(t, err)
	user := &model.User{Username: "ada", LoginToken: token}

	story, err := list.AddStory(context.Background(), user, model.StoryData{Title: "Mine", Author: "A", URL: "https://x.test/"})
	require.NoError(t, err)
	require.NoError(t, AddFavorite(context.Background(), client, user, story))
	require.True(t, user.IsFavorite(story))

	err = list.RemoveStory(context.Background(), user, story.ID)
	require.NoError(t, err)

	assert.Nil(t, list.Find(story.ID))
	assert.Nil(t, model.FindStory(user.OwnStories, story.ID))
	assert.Nil(t, model.FindStory(user.Favorites, story.ID))
	assert.Equal(t, []string{other}, storyIDs(list.Stories()))
	assert.Equal(t, []string{other}, srv.StoryIDs())
}

func TestStoryList_RemoveStory_FailureLeavesStateUnchanged(t *testing.T) {
	srv, client := newFakeServer(t)
	token := srv.AddUser("ada", "pw", "Ada")
	srv.AddUser("bob", "pw", "Bob")
	bobs := srv.AddStory("bob", "Bob's", "B", "https://b.test/")

	list, err := FetchStoryList(context.Background(), client, api.ListParams{})
	require.NoError(t, err)
	story := list.Find(bobs)
	user := &model.User{Username: "ada", LoginToken: token, Favorites: []*model.Story{story}}

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"not owned", bobs, http.StatusForbidden},
		{"not found", "missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := list.RemoveStory(context.Background(), user, tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.status, api.StatusCode(err))

			assert.NotNil(t, list.Find(bobs))
			assert.True(t, user.IsFavorite(story))
		})
	}
}

func TestStoryList_RemoveStory_RequiresToken(t *testing.T) {
	list := NewStoryList(&stubAPI{}, []*model.Story{{ID: "1"}})

	err := list.RemoveStory(context.Background(), &model.User{}, "1")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, 1, list.Len())
}
