package api

import (
	"time"

	"github.com/robertmeta/snooze-cli/model"
)

// storyRecord is a story as the API sends it.
type storyRecord struct {
	StoryID   string `json:"storyId"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// userRecord is a user profile as the API sends it. Stories holds the
// user's own submissions.
type userRecord struct {
	Username  string        `json:"username"`
	Name      string        `json:"name"`
	CreatedAt string        `json:"createdAt"`
	Favorites []storyRecord `json:"favorites"`
	Stories   []storyRecord `json:"stories"`
}

type storiesResponse struct {
	Stories []storyRecord `json:"stories"`
}

type storyResponse struct {
	Story storyRecord `json:"story"`
}

type userResponse struct {
	User  userRecord `json:"user"`
	Token string     `json:"token,omitempty"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type createStoryRequest struct {
	Token string          `json:"token"`
	Story model.StoryData `json:"story"`
}

type credentialsRequest struct {
	User struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name,omitempty"`
	} `json:"user"`
}

// timeLayouts are tried in order when reading createdAt values.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// convertStory converts a wire record to a model.Story.
func convertStory(r storyRecord) *model.Story {
	return &model.Story{
		ID:        r.StoryID,
		Title:     r.Title,
		Author:    r.Author,
		URL:       r.URL,
		Username:  r.Username,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

func convertStories(records []storyRecord) []*model.Story {
	stories := make([]*model.Story, 0, len(records))
	for _, r := range records {
		stories = append(stories, convertStory(r))
	}
	return stories
}

// convertUser converts a wire profile plus a token to a model.User.
func convertUser(r userRecord, token string) *model.User {
	return &model.User{
		Username:   r.Username,
		Name:       r.Name,
		CreatedAt:  parseTime(r.CreatedAt),
		Favorites:  convertStories(r.Favorites),
		OwnStories: convertStories(r.Stories),
		LoginToken: token,
	}
}
