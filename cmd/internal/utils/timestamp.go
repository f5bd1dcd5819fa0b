package utils

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidTimestamp = errors.New("invalid datetime")

var (
	isoPrefix   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
	spacedShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}(:\d{2})?$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Layouts without a zone are parsed as UTC by time.Parse. Fractional
// seconds are accepted after the seconds field even when the layout
// omits them.
var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

var spacedLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts either an ISO-8601 string with a "T" separator
// (zone optional, UTC assumed) or "YYYY-MM-DD HH:MM[:SS]" (UTC), and
// returns the instant in UTC truncated to the microsecond, the finest
// precision timestamptz keeps. Impossible calendar or clock values fail
// with ErrInvalidTimestamp.
func ParseTimestamp(input string) (time.Time, error) {
	s := strings.TrimSpace(input)

	switch {
	case isoPrefix.MatchString(s):
		return parseWithLayouts(s, isoLayouts)
	case spacedShape.MatchString(s):
		return parseWithLayouts(whitespace.ReplaceAllString(s, " "), spacedLayouts)
	default:
		return time.Time{}, ErrInvalidTimestamp
	}
}

func parseWithLayouts(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
