package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"site-cms/pkg/models"
)

// FormatAuthors renders a byline such as "Ann, Bob and Cid". Authors without
// a name are skipped.
func FormatAuthors(authors []models.PopulatedAuthor) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// dateLayouts are the timestamp shapes content and API clients send.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate reads a full timestamp or a bare date. Values without a zone
// are taken as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// FormatDateTime formats a timestamp or date as MM/DD/YYYY. An empty
// timestamp formats the current date; an unparsable one yields "".
func FormatDateTime(timestamp string) string {
	date := time.Now()
	if timestamp != "" {
		parsed, err := ParseDate(timestamp)
		if err != nil {
			return ""
		}
		date = parsed
	}
	return FormatDate(date)
}

// FormatDate is FormatDateTime for an already parsed time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("01/02/2006")
}

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ToKebabCase turns "Hello World" or "helloWorld" into "hello-world".
func ToKebabCase(s string) string {
	s = camelBoundary.ReplaceAllString(s, "$1-$2")
	s = whitespaceRun.ReplaceAllString(s, "-")
	return strings.ToLower(s)
}

var nonSlug = regexp.MustCompile(`[^\w-]+`)

// FormatSlug turns a title into a URL slug: spaces become dashes, other
// non-word characters are dropped.
func FormatSlug(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "-")
	return strings.ToLower(nonSlug.ReplaceAllString(s, ""))
}
