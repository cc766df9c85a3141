package core

import (
	"context"

	"github.com/robertmeta/snooze-cli/model"
	"github.com/rs/zerolog"
)

// Signup registers a new account and returns it.
func Signup(ctx context.Context, client API, username, password, name string) (*model.User, error) {
	return client.Signup(ctx, username, password, name)
}

// Login authenticates with username and password. Rejected credentials
// surface as *api.AuthError.
func Login(ctx context.Context, client API, username, password string) (*model.User, error) {
	return client.Login(ctx, username, password)
}

// LoginViaStoredCredentials restores a user from previously saved
// credentials. The second return is false when there is no usable session:
// missing credentials, an expired token or any API failure. The failure is
// logged, never returned.
func LoginViaStoredCredentials(ctx context.Context, client API, creds model.Credentials) (*model.User, bool) {
	logger := zerolog.Ctx(ctx)
	if !creds.Valid() {
		return nil, false
	}

	user, err := client.GetUser(ctx, creds.Token, creds.Username)
	if err != nil {
		logger.Warn().Err(err).Str("username", creds.Username).Msg("stored credentials rejected")
		return nil, false
	}
	// Keep the stored token, not whatever the profile call returned.
	user.LoginToken = creds.Token
	return user, true
}

// AddFavorite adds story to user's favorites. The local list is updated
// first and restored if the API call fails.
func AddFavorite(ctx context.Context, client API, user *model.User, story *model.Story) error {
	if err := requireToken(user); err != nil {
		return err
	}

	previous := user.Favorites
	if !user.IsFavorite(story) {
		user.Favorites = append(user.Favorites[:len(user.Favorites):len(user.Favorites)], story)
	}

	if err := client.AddFavorite(ctx, user.LoginToken, user.Username, story.ID); err != nil {
		user.Favorites = previous
		zerolog.Ctx(ctx).Debug().Err(err).Str("story_id", story.ID).Msg("favorite rolled back")
		return err
	}
	return nil
}

// RemoveFavorite removes story from user's favorites. The local list is
// updated first and restored if the API call fails.
func RemoveFavorite(ctx context.Context, client API, user *model.User, story *model.Story) error {
	if err := requireToken(user); err != nil {
		return err
	}

	previous := user.Favorites
	user.Favorites = model.RemoveStory(user.Favorites, story.ID)

	if err := client.RemoveFavorite(ctx, user.LoginToken, user.Username, story.ID); err != nil {
		user.Favorites = previous
		zerolog.Ctx(ctx).Debug().Err(err).Str("story_id", story.ID).Msg("unfavorite rolled back")
		return err
	}
	return nil
}

// ToggleFavorite flips the favorite state of story and returns the new state.
func ToggleFavorite(ctx context.Context, client API, user *model.User, story *model.Story) (bool, error) {
	if user != nil && user.IsFavorite(story) {
		if err := RemoveFavorite(ctx, client, user, story); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := AddFavorite(ctx, client, user, story); err != nil {
		return false, err
	}
	return true, nil
}
