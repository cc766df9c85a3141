package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robertmeta/snooze-cli/model"
)

// durationPattern matches duration strings like "7d", "2w", "3m", "1y"
var durationPattern = regexp.MustCompile(`^(\d+)([hdwmy])$`)

// ListOptions filters and pages a story listing.
type ListOptions struct {
	Limit    int
	Offset   int
	Since    *time.Time
	Author   string
	Username string
}

// ParseDuration parses a duration string like "12h", "7d", "2w", "3m", "1y".
//
// Supported units:
//   - h: hours
//   - d: days
//   - w: weeks (7 days)
//   - m: months (30 days, approximation)
//   - y: years (365 days, approximation)
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("duration string is empty")
	}

	matches := durationPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid duration format: %s (expected format: <number><unit>, e.g., 7d, 2w, 3m, 1y)", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil || num < 0 {
		return 0, fmt.Errorf("invalid number in duration: %s", matches[1])
	}

	day := 24 * time.Hour
	switch matches[2] {
	case "h":
		return time.Duration(num) * time.Hour, nil
	case "d":
		return time.Duration(num) * day, nil
	case "w":
		return time.Duration(num) * 7 * day, nil
	case "m": // months (approximate as 30 days)
		return time.Duration(num) * 30 * day, nil
	case "y": // years (approximate as 365 days)
		return time.Duration(num) * 365 * day, nil
	}
	return 0, fmt.Errorf("invalid duration unit: %s (expected h, d, w, m, or y)", matches[2])
}

// SinceToTime converts a "since" duration string (e.g., "7d") to the point
// in time that lies that far before now.
func SinceToTime(since string, now time.Time) (time.Time, error) {
	d, err := ParseDuration(since)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}

// BuildListOptions constructs ListOptions from CLI flags.
func BuildListOptions(limit, offset int, since, author, username string) (ListOptions, error) {
	opts := ListOptions{
		Limit:    limit,
		Offset:   offset,
		Author:   author,
		Username: username,
	}
	if limit < 0 || offset < 0 {
		return opts, fmt.Errorf("limit and offset must not be negative")
	}

	if since != "" {
		t, err := SinceToTime(since, time.Now())
		if err != nil {
			return opts, fmt.Errorf("failed to parse --since flag: %w", err)
		}
		opts.Since = &t
	}

	return opts, nil
}

// Apply returns the stories matching the filters, paged by Offset and Limit.
// Order is preserved. Author matching is case-insensitive.
func (o ListOptions) Apply(stories []*model.Story) []*model.Story {
	matched := make([]*model.Story, 0, len(stories))
	for _, s := range stories {
		if o.Since != nil && s.CreatedAt.Before(*o.Since) {
			continue
		}
		if o.Author != "" && !strings.EqualFold(s.Author, o.Author) {
			continue
		}
		if o.Username != "" && s.Username != o.Username {
			continue
		}
		matched = append(matched, s)
	}

	if o.Offset >= len(matched) {
		return []*model.Story{}
	}
	matched = matched[o.Offset:]
	if o.Limit > 0 && o.Limit < len(matched) {
		matched = matched[:o.Limit]
	}
	return matched
}
