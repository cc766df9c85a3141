package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/robertmeta/snooze-cli/api"
	"github.com/robertmeta/snooze-cli/core"
	"github.com/robertmeta/snooze-cli/feed"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/robertmeta/snooze-cli/opml"
	"github.com/urfave/cli/v2"
)

func listStories(c *cli.Context) error {
	opts, err := core.BuildListOptions(
		c.Int("limit"),
		c.Int("offset"),
		c.String("since"),
		c.String("author"),
		c.String("user"),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid list options: %v", err), ExitUsageError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	if err := sess.app.Start(c.Context, api.ListParams{Limit: c.Int("fetch")}); err != nil {
		return fail(err)
	}

	stories := opts.Apply(sess.app.Stories.Stories())
	return outputJSON(c, map[string]interface{}{
		"state":   sess.app.State().String(),
		"count":   len(stories),
		"limit":   opts.Limit,
		"offset":  opts.Offset,
		"stories": viewStories(sess.app.User, stories),
	})
}

func showStory(c *cli.Context) error {
	if c.NArg() < 1 {
		return usage(c)
	}
	id := c.Args().Get(0)

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	if err := sess.app.Start(c.Context, api.ListParams{}); err != nil {
		return fail(err)
	}

	story, err := sess.app.FindStory(id)
	if err != nil {
		return fail(err)
	}
	if _, err := story.HostName(); err != nil {
		return fail(err)
	}

	return outputJSON(c, viewStory(sess.app.User, story))
}

func submitStory(c *cli.Context) error {
	data := model.StoryData{
		Title:  c.String("title"),
		Author: c.String("author"),
		URL:    c.String("url"),
	}
	if err := data.Validate(); err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	sess.app.Restore(c.Context)
	story, err := sess.app.AddStory(c.Context, data)
	if err != nil {
		return fail(err)
	}

	return outputJSON(c, map[string]interface{}{
		"success": true,
		"story":   viewStory(sess.app.User, story),
	})
}

func deleteStory(c *cli.Context) error {
	if c.NArg() < 1 {
		return usage(c)
	}
	id := c.Args().Get(0)

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	sess.app.Restore(c.Context)
	if err := sess.app.RemoveStory(c.Context, id); err != nil {
		return fail(err)
	}

	return outputJSON(c, map[string]interface{}{
		"success":  true,
		"story_id": id,
	})
}

func setFavorite(favorite bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() < 1 {
			return usage(c)
		}
		id := c.Args().Get(0)

		sess, err := openSession(c)
		if err != nil {
			return cli.Exit(err.Error(), ExitDataError)
		}
		defer sess.Close()

		if err := sess.app.Start(c.Context, api.ListParams{}); err != nil {
			return fail(err)
		}

		story, err := sess.app.SetFavorite(c.Context, id, favorite)
		if err != nil {
			return fail(err)
		}

		return outputJSON(c, map[string]interface{}{
			"success": true,
			"story":   viewStory(sess.app.User, story),
		})
	}
}

func listFavorites(c *cli.Context) error {
	return listUserStories(c, func(u *model.User) []*model.Story { return u.Favorites })
}

func listOwnStories(c *cli.Context) error {
	return listUserStories(c, func(u *model.User) []*model.Story { return u.OwnStories })
}

func listUserStories(c *cli.Context, pick func(*model.User) []*model.Story) error {
	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	sess.app.Restore(c.Context)
	user, err := sess.app.RequireUser()
	if err != nil {
		return fail(err)
	}

	stories := pick(user)
	return outputJSON(c, map[string]interface{}{
		"username": user.Username,
		"count":    len(stories),
		"stories":  viewStories(user, stories),
	})
}

func signup(c *cli.Context) error {
	username, password, name := c.String("username"), c.String("password"), c.String("name")
	if username == "" || password == "" || name == "" {
		return cli.Exit("Usage: snooze signup --username <username> --name <name> --password <password>", ExitUsageError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	user, err := sess.app.Signup(c.Context, username, password, name)
	if err != nil {
		return fail(err)
	}

	return outputJSON(c, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func login(c *cli.Context) error {
	username, password := c.String("username"), c.String("password")
	if username == "" || password == "" {
		return cli.Exit("Usage: snooze login --username <username> --password <password>", ExitUsageError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	user, err := sess.app.Login(c.Context, username, password)
	if err != nil {
		return fail(err)
	}

	return outputJSON(c, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func logout(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	if err := sess.app.Logout(); err != nil {
		return fail(err)
	}

	return outputJSON(c, map[string]interface{}{
		"success": true,
	})
}

func whoami(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	sess.app.Restore(c.Context)
	return outputJSON(c, map[string]interface{}{
		"state": sess.app.State().String(),
		"user":  sess.app.User,
	})
}

func importFeed(c *cli.Context) error {
	if c.NArg() < 1 {
		return usage(c)
	}
	url := c.Args().Get(0)

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	fetcher := feed.NewFetcher(&http.Client{Timeout: sess.cfg.API.Timeout})
	source, stories, err := fetcher.Fetch(c.Context, url)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to fetch feed: %v", err), ExitDataError)
	}
	if n := c.Int("max"); n > 0 && n < len(stories) {
		stories = stories[:n]
	}

	return submitAll(c, sess, map[string]interface{}{"feed": source}, stories)
}

func importOPML(c *cli.Context) error {
	if c.NArg() < 1 {
		return usage(c)
	}
	opmlPath := c.Args().Get(0)

	file, err := os.Open(opmlPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open OPML file: %v", err), ExitDataError)
	}
	defer file.Close()

	stories, err := opml.Parse(file)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to parse OPML: %v", err), ExitDataError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	return submitAll(c, sess, map[string]interface{}{"file": opmlPath}, stories)
}

// submitAll submits stories one at a time as the remembered user and
// reports the outcome. With --dry-run nothing is sent.
func submitAll(c *cli.Context, sess *session, result map[string]interface{}, stories []model.StoryData) error {
	result["total"] = len(stories)

	if c.Bool("dry-run") {
		result["stories"] = stories
		return outputJSON(c, result)
	}

	sess.app.Restore(c.Context)
	if _, err := sess.app.RequireUser(); err != nil {
		return fail(err)
	}

	imported, skipped, errs := submitStories(c.Context, sess.app, stories)
	result["success"] = true
	result["imported"] = imported
	result["skipped"] = skipped
	result["errors"] = errs
	return outputJSON(c, result)
}

func submitStories(ctx context.Context, app *core.App, stories []model.StoryData) (imported, skipped int, errs []string) {
	for _, data := range stories {
		if err := data.Validate(); err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("%s: %v", data.URL, err))
			continue
		}
		if ctx.Err() != nil {
			skipped++
			continue
		}
		if _, err := app.AddStory(ctx, data); err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("%s: %v", data.URL, err))
			continue
		}
		imported++
	}
	return imported, skipped, errs
}

func exportOPML(c *cli.Context) error {
	if c.Bool("favorites") && c.Bool("mine") {
		return cli.Exit("Use only one of --favorites and --mine", ExitUsageError)
	}

	sess, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer sess.Close()

	var (
		title   string
		stories []*model.Story
	)
	switch {
	case c.Bool("favorites"), c.Bool("mine"):
		sess.app.Restore(c.Context)
		user, err := sess.app.RequireUser()
		if err != nil {
			return fail(err)
		}
		if c.Bool("favorites") {
			title = fmt.Sprintf("Favorites of %s", user.Username)
			stories = user.Favorites
		} else {
			title = fmt.Sprintf("Stories by %s", user.Username)
			stories = user.OwnStories
		}
	default:
		if err := sess.app.Start(c.Context, api.ListParams{}); err != nil {
			return fail(err)
		}
		title = "Hack or Snooze stories"
		stories = sess.app.Stories.Stories()
	}

	// Determine output destination
	outputPath := c.String("output")
	var writer io.Writer

	if outputPath == "" {
		writer = c.App.Writer
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create output file: %v", err), ExitDataError)
		}
		defer file.Close()
		writer = file
	}

	if err := opml.Generate(writer, title, stories); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate OPML: %v", err), ExitDataError)
	}

	// If outputting to file, also return JSON status
	if outputPath != "" {
		return outputJSON(c, map[string]interface{}{
			"success": true,
			"file":    outputPath,
			"count":   len(stories),
		})
	}

	return nil
}
