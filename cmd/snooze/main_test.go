package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/api/apitest"
	"github.com/robertmeta/snooze-cli/core"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type cliEnv struct {
	t      *testing.T
	srv    *apitest.Server
	config string
	db     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	srv := apitest.New()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("api:\n  requests_per_second: 0\n"), 0o600))

	return &cliEnv{
		t:      t,
		srv:    srv,
		config: config,
		db:     filepath.Join(dir, "snooze.db"),
	}
}

// run executes one CLI invocation and returns its stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"snooze",
		"--config", e.config,
		"--db", e.db,
		"--base-url", e.srv.URL(),
	}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

func (e *cliEnv) mustRun(args ...string) map[string]interface{} {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)

	var result map[string]interface{}
	require.NoError(e.t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "expected exit error, got %v", err)
	assert.Equal(t, code, exitErr.ExitCode(), err.Error())
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser("ada", "secret", "Ada Lovelace")

	result := env.mustRun("whoami")
	assert.Equal(t, "anonymous", result["state"])

	result = env.mustRun("login", "--username", "ada", "--password", "secret")
	assert.Equal(t, true, result["success"])
	user := result["user"].(map[string]interface{})
	assert.Equal(t, "ada", user["username"])
	assert.NotContains(t, user, "LoginToken")

	// The session survives between invocations
	result = env.mustRun("whoami")
	assert.Equal(t, "authenticated", result["state"])

	env.mustRun("logout")
	result = env.mustRun("whoami")
	assert.Equal(t, "anonymous", result["state"])
}

func TestCLI_LoginPasswordFromEnv(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser("ada", "secret", "Ada Lovelace")
	t.Setenv("SNOOZE_PASSWORD", "secret")

	result := env.mustRun("login", "--username", "ada")
	assert.Equal(t, true, result["success"])
}

func TestCLI_LoginBadPassword(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser("ada", "secret", "Ada Lovelace")

	_, err := env.run("login", "--username", "ada", "--password", "wrong")
	requireExitCode(t, err, ExitAuthError)

	result := env.mustRun("whoami")
	assert.Equal(t, "anonymous", result["state"])
}

func TestCLI_Signup(t *testing.T) {
	env := newCLIEnv(t)

	result := env.mustRun("signup", "--username", "grace", "--name", "Grace Hopper", "--password", "cobol")
	assert.Equal(t, true, result["success"])

	result = env.mustRun("whoami")
	assert.Equal(t, "authenticated", result["state"])

	// Taken username is a remote failure, not a credential problem
	_, err := env.run("signup", "--username", "grace", "--name", "Other", "--password", "x")
	requireExitCode(t, err, ExitDataError)
}

func TestCLI_Stories(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddStory("ada", "Older", "Ann", "https://example.com/older")
	newest := env.srv.AddStory("bob", "Newer", "Ben", "https://news.example.com:8080/newer")

	result := env.mustRun("stories")
	assert.Equal(t, "anonymous", result["state"])
	assert.EqualValues(t, 2, result["count"])

	stories := result["stories"].([]interface{})
	first := stories[0].(map[string]interface{})
	assert.Equal(t, newest, first["storyId"])
	assert.Equal(t, "news.example.com:8080", first["hostname"])

	result = env.mustRun("stories", "--user", "ada")
	assert.EqualValues(t, 1, result["count"])

	result = env.mustRun("stories", "--limit", "1", "--offset", "1")
	assert.EqualValues(t, 1, result["count"])
}

func TestCLI_Stories_RemoteFailure(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.Fail(http.MethodGet, "/stories", http.StatusInternalServerError)

	_, err := env.run("stories")
	requireExitCode(t, err, ExitDataError)
}

func TestCLI_UsageErrors(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"show without id", []string{"show"}},
		{"delete without id", []string{"delete"}},
		{"favorite without id", []string{"favorite"}},
		{"negative limit", []string{"stories", "--limit", "-1"}},
		{"bad since", []string{"stories", "--since", "soon"}},
		{"submit missing url", []string{"submit", "--title", "t", "--author", "a"}},
		{"login missing password", []string{"login", "--username", "ada"}},
		{"export both sets", []string{"export", "--favorites", "--mine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			requireExitCode(t, err, ExitUsageError)
		})
	}
}

func TestCLI_RequiresLogin(t *testing.T) {
	env := newCLIEnv(t)
	id := env.srv.AddStory("ada", "Story", "Ann", "https://example.com/")

	for _, args := range [][]string{
		{"submit", "--title", "t", "--author", "a", "--url", "https://example.com/x"},
		{"delete", id},
		{"favorite", id},
		{"favorites"},
		{"mine"},
	} {
		_, err := env.run(args...)
		requireExitCode(t, err, ExitAuthError)
	}
}

func TestCLI_StoryLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser("ada", "secret", "Ada Lovelace")
	env.mustRun("login", "--username", "ada", "--password", "secret")

	result := env.mustRun("submit", "--title", "Notes", "--author", "Ada", "--url", "https://example.com/notes")
	story := result["story"].(map[string]interface{})
	id := story["storyId"].(string)
	assert.Equal(t, true, story["own"])
	assert.Contains(t, env.srv.StoryIDs(), id)

	result = env.mustRun("mine")
	assert.EqualValues(t, 1, result["count"])

	result = env.mustRun("favorite", id)
	assert.Equal(t, true, result["story"].(map[string]interface{})["favorite"])
	assert.Equal(t, []string{id}, env.srv.Favorites("ada"))

	result = env.mustRun("favorites")
	assert.EqualValues(t, 1, result["count"])

	env.mustRun("unfavorite", id)
	assert.Empty(t, env.srv.Favorites("ada"))

	env.mustRun("delete", id)
	assert.NotContains(t, env.srv.StoryIDs(), id)

	result = env.mustRun("mine")
	assert.EqualValues(t, 0, result["count"])
}

func TestCLI_Show(t *testing.T) {
	env := newCLIEnv(t)
	id := env.srv.AddStory("ada", "Story", "Ann", "https://example.com/a/b")

	result := env.mustRun("show", id)
	assert.Equal(t, id, result["storyId"])
	assert.Equal(t, "example.com", result["hostname"])

	_, err := env.run("show", "no-such-story")
	requireExitCode(t, err, ExitDataError)

	bad := env.srv.AddStory("ada", "Broken", "Ann", "not a url")
	_, err = env.run("show", bad)
	requireExitCode(t, err, ExitDataError)
}

func TestCLI_ExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddStory("bob", "One", "Ben", "https://example.com/1")
	env.srv.AddStory("bob", "Two", "Ben", "https://example.com/2")

	out := filepath.Join(t.TempDir(), "stories.opml")
	result := env.mustRun("export", "--output", out)
	assert.EqualValues(t, 2, result["count"])

	result = env.mustRun("import", "--dry-run", out)
	assert.EqualValues(t, 2, result["total"])
	assert.Len(t, env.srv.StoryIDs(), 2, "dry run must not submit")

	// Importing needs a session
	_, err := env.run("import", out)
	requireExitCode(t, err, ExitAuthError)

	env.srv.AddUser("ada", "secret", "Ada Lovelace")
	env.mustRun("login", "--username", "ada", "--password", "secret")

	result = env.mustRun("import", out)
	assert.EqualValues(t, 2, result["imported"])
	assert.EqualValues(t, 0, result["skipped"])
	assert.Len(t, env.srv.StoryIDs(), 4)

	result = env.mustRun("export", "--mine", "--output", out)
	assert.EqualValues(t, 2, result["count"])
}

func TestCLI_ExportToStdout(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddStory("bob", "One & Only", "Ben", "https://example.com/1")

	out, err := env.run("export")
	require.NoError(t, err)
	assert.Contains(t, out, `<opml version="2.0">`)
	assert.Contains(t, out, "One &amp; Only")
}

func TestCLI_ImportFeed(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.AddUser("ada", "secret", "Ada Lovelace")

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title><link>https://blog.example.com</link>
<item><title>Post 1</title><link>https://blog.example.com/1</link></item>
<item><title>Post 2</title><link>https://blog.example.com/2</link></item>
<item><title>Post 3</title><link>https://blog.example.com/3</link></item>
</channel></rss>`)
	}))
	defer feedSrv.Close()

	result := env.mustRun("import-feed", "--dry-run", feedSrv.URL)
	assert.EqualValues(t, 3, result["total"])

	env.mustRun("login", "--username", "ada", "--password", "secret")
	result = env.mustRun("import-feed", "--max", "2", feedSrv.URL)
	assert.EqualValues(t, 2, result["imported"])
	assert.Len(t, env.srv.StoryIDs(), 2)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", &api.AuthError{RemoteError: &api.RemoteError{Op: "login", StatusCode: 401}}, ExitAuthError},
		{"not logged in", core.ErrNotLoggedIn, ExitAuthError},
		{"expired token", &api.RemoteError{Op: "create story", StatusCode: 401}, ExitAuthError},
		{"remote", &api.RemoteError{Op: "list stories", StatusCode: 500}, ExitDataError},
		{"wrapped remote", fmt.Errorf("failed: %w", &api.RemoteError{Op: "x", StatusCode: 404}), ExitDataError},
		{"story not found", fmt.Errorf("%w: abc", core.ErrStoryNotFound), ExitDataError},
		{"malformed url", model.ErrMalformedURL, ExitDataError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
