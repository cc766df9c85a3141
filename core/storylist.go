package core

import (
	"context"
	"fmt"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/rs/zerolog"
)

// StoryList is the authoritative in-memory collection of known stories.
// Its order is the server order, with local insertions at the front, and it
// never holds two stories with the same ID.
type StoryList struct {
	client  API
	stories []*model.Story
}

// NewStoryList builds a StoryList from stories, keeping the first entry
// of any repeated ID.
func NewStoryList(client API, stories []*model.Story) *StoryList {
	seen := make(map[string]bool, len(stories))
	unique := make([]*model.Story, 0, len(stories))
	for _, s := range stories {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		unique = append(unique, s)
	}
	return &StoryList{client: client, stories: unique}
}

// FetchStoryList lists stories from the API and returns a new StoryList.
func FetchStoryList(ctx context.Context, client API, p api.ListParams) (*StoryList, error) {
	stories, err := client.ListStories(ctx, p)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Int("count", len(stories)).Msg("fetched stories")
	return NewStoryList(client, stories), nil
}

// Stories returns the stories in display order.
func (l *StoryList) Stories() []*model.Story {
	return l.stories
}

// Len returns the number of stories.
func (l *StoryList) Len() int {
	return len(l.stories)
}

// Find returns the story with the given ID, or nil.
func (l *StoryList) Find(id string) *model.Story {
	return model.FindStory(l.stories, id)
}

// AddStory submits a story as user. On success the new story is placed at
// the front of both the list and user.OwnStories. Nothing changes locally
// when the API call fails.
func (l *StoryList) AddStory(ctx context.Context, user *model.User, data model.StoryData) (*model.Story, error) {
	if err := requireToken(user); err != nil {
		return nil, err
	}

	story, err := l.client.CreateStory(ctx, user.LoginToken, data)
	if err != nil {
		return nil, err
	}

	l.stories = model.PrependStory(l.stories, story)
	user.OwnStories = model.PrependStory(user.OwnStories, story)

	zerolog.Ctx(ctx).Debug().Str("story_id", story.ID).Msg("story added")
	return story, nil
}

// RemoveStory deletes a story owned by user. After the API confirms, the
// story is removed from the list, from user.OwnStories and from
// user.Favorites. Nothing changes locally when the API call fails.
func (l *StoryList) RemoveStory(ctx context.Context, user *model.User, id string) error {
	if err := requireToken(user); err != nil {
		return err
	}

	if err := l.client.DeleteStory(ctx, user.LoginToken, id); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}

	l.stories = model.RemoveStory(l.stories, id)
	user.OwnStories = model.RemoveStory(user.OwnStories, id)
	user.Favorites = model.RemoveStory(user.Favorites, id)

	zerolog.Ctx(ctx).Debug().Str("story_id", id).Msg("story removed")
	return nil
}
