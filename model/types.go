// Package model defines the core data structures for snooze-cli.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrMalformedURL is returned when a story URL cannot be parsed as an absolute URL.
var ErrMalformedURL = errors.New("malformed story URL")

// Story represents a single submitted link. Stories are only built from
// records returned by the remote API.
type Story struct {
	ID        string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// HostName returns the host component of the story URL, port included.
func (s *Story) HostName() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, s.URL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", ErrMalformedURL, s.URL)
	}
	return u.Host, nil
}

// StoryData holds the caller-supplied fields of a new story.
type StoryData struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// Validate checks if the story data has all required fields.
func (d StoryData) Validate() error {
	switch {
	case d.Title == "":
		return errors.New("story title is required")
	case d.Author == "":
		return errors.New("story author is required")
	case d.URL == "":
		return errors.New("story URL is required")
	}
	return nil
}

// User represents the authenticated user of the current session.
type User struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	Favorites  []*Story  `json:"favorites"`
	OwnStories []*Story  `json:"stories"`
	LoginToken string    `json:"-"`
}

// IsFavorite reports whether the story is in the user's favorites.
func (u *User) IsFavorite(s *Story) bool {
	return FindStory(u.Favorites, s.ID) != nil
}

// IsOwnStory reports whether the user submitted the story.
func (u *User) IsOwnStory(s *Story) bool {
	return FindStory(u.OwnStories, s.ID) != nil
}

// Credentials is the locally persisted session record.
type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Valid returns true if both the token and the username are set.
func (c Credentials) Valid() bool {
	return c.Token != "" && c.Username != ""
}

// FindStory returns the story with the given ID, or nil.
func FindStory(stories []*Story, id string) *Story {
	for _, s := range stories {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RemoveStory returns a new slice without any story carrying the given ID.
func RemoveStory(stories []*Story, id string) []*Story {
	out := make([]*Story, 0, len(stories))
	for _, s := range stories {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// PrependStory returns a new slice with s at index 0 and no other entry
// sharing its ID.
func PrependStory(stories []*Story, s *Story) []*Story {
	out := make([]*Story, 0, len(stories)+1)
	out = append(out, s)
	for _, existing := range stories {
		if existing.ID != s.ID {
			out = append(out, existing)
		}
	}
	return out
}
