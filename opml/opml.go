// Package opml provides OPML import and export of story links.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/robertmeta/snooze-cli/model"
)

// OPML represents the root OPML structure.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains metadata about the OPML document.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outline elements.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a link or a group of links in OPML.
type Outline struct {
	Text     string    `xml:"text,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	URL      string    `xml:"url,attr,omitempty"`
	HTMLUrl  string    `xml:"htmlUrl,attr,omitempty"`
	XMLUrl   string    `xml:"xmlUrl,attr,omitempty"`
	Author   string    `xml:"author,attr,omitempty"`
	Created  string    `xml:"created,attr,omitempty"`
	StoryID  string    `xml:"storyId,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// link returns the first URL-carrying attribute of the outline.
func (o Outline) link() string {
	switch {
	case o.URL != "":
		return o.URL
	case o.HTMLUrl != "":
		return o.HTMLUrl
	default:
		return o.XMLUrl
	}
}

// Parse reads an OPML document and extracts story submissions.
func Parse(r io.Reader) ([]model.StoryData, error) {
	var doc OPML
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	return extractStories(doc.Body.Outlines, ""), nil
}

// extractStories recursively extracts links from outlines. parentAuthor is
// used for nested outlines that don't name their own author.
func extractStories(outlines []Outline, parentAuthor string) []model.StoryData {
	var stories []model.StoryData

	for _, outline := range outlines {
		author := outline.Author
		if author == "" {
			author = parentAuthor
		}

		if link := outline.link(); link != "" {
			stories = append(stories, model.StoryData{
				Title:  outline.Text,
				Author: author,
				URL:    link,
			})
		}

		if len(outline.Outlines) > 0 {
			stories = append(stories, extractStories(outline.Outlines, author)...)
		}
	}

	return stories
}

// Generate writes stories as OPML link outlines, grouped by the username
// that posted them.
func Generate(w io.Writer, title string, stories []*model.Story) error {
	byUser := make(map[string][]*model.Story)
	var usernames []string
	for _, s := range stories {
		if _, ok := byUser[s.Username]; !ok {
			usernames = append(usernames, s.Username)
		}
		byUser[s.Username] = append(byUser[s.Username], s)
	}
	sort.Strings(usernames)

	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123),
		},
		Body: Body{
			Outlines: []Outline{},
		},
	}

	for _, username := range usernames {
		group := Outline{
			Text:     username,
			Outlines: []Outline{},
		}
		for _, s := range byUser[username] {
			group.Outlines = append(group.Outlines, linkOutline(s))
		}
		doc.Body.Outlines = append(doc.Body.Outlines, group)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}

	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write final newline: %w", err)
	}

	return nil
}

func linkOutline(s *model.Story) Outline {
	o := Outline{
		Type:    "link",
		Text:    s.Title,
		URL:     s.URL,
		Author:  s.Author,
		StoryID: s.ID,
	}
	if !s.CreatedAt.IsZero() {
		o.Created = s.CreatedAt.Format(time.RFC1123)
	}
	return o
}
