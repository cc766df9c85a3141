// Package feed turns RSS/Atom/JSON feeds into story submissions.
package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/robertmeta/snooze-cli/model"
)

// Source describes the feed the stories came from.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Fetcher handles fetching and parsing feeds.
type Fetcher struct {
	parser *gofeed.Parser
	policy *bluemonday.Policy
}

// NewFetcher creates a new Fetcher. A nil client uses gofeed's default.
func NewFetcher(client *http.Client) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "snooze-cli"
	if client != nil {
		parser.Client = client
	}
	return &Fetcher{
		parser: parser,
		policy: bluemonday.StrictPolicy(),
	}
}

// Fetch retrieves and parses a feed from a URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Source, []model.StoryData, error) {
	parsedFeed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}

	source, stories := f.convert(parsedFeed, url)
	return source, stories, nil
}

// Parse parses feed content from a string.
func (f *Fetcher) Parse(content string) (*Source, []model.StoryData, error) {
	if content == "" {
		return nil, nil, fmt.Errorf("feed content is empty")
	}

	parsedFeed, err := f.parser.ParseString(content)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	source, stories := f.convert(parsedFeed, "")
	return source, stories, nil
}

// convert converts a gofeed.Feed to story submissions, skipping items
// without a title or link and repeated links.
func (f *Fetcher) convert(gf *gofeed.Feed, url string) (*Source, []model.StoryData) {
	source := &Source{
		Title: f.clean(gf.Title),
		URL:   url,
	}
	if source.URL == "" {
		source.URL = gf.FeedLink
	}
	if source.URL == "" {
		source.URL = gf.Link
	}

	fallbackAuthor := personName(gf.Authors, gf.Author)
	if fallbackAuthor == "" {
		fallbackAuthor = source.Title
	}

	seen := make(map[string]bool)
	var stories []model.StoryData
	for _, item := range gf.Items {
		data := model.StoryData{
			Title:  f.clean(item.Title),
			Author: f.clean(personName(item.Authors, item.Author)),
			URL:    strings.TrimSpace(item.Link),
		}
		if data.Title == "" || data.URL == "" || seen[data.URL] {
			continue
		}
		seen[data.URL] = true

		if data.Author == "" {
			data.Author = fallbackAuthor
		}
		stories = append(stories, data)
	}

	return source, stories
}

// clean strips markup and decodes entities.
func (f *Fetcher) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(s)))
}

func personName(people []*gofeed.Person, fallback *gofeed.Person) string {
	for _, p := range people {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	if fallback != nil {
		return fallback.Name
	}
	return ""
}
