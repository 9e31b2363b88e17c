package models

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const DateLayout = "2006-01-02"

var (
	validID      = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	markupPolicy = bluemonday.StrictPolicy()
)

// ValidID reports whether id can be used as a library, album or photo id.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// CreateSlug lowercases s, turns every run of other characters into a single
// hyphen and strips hyphens from both ends.
func CreateSlug(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// CleanName strips markup from user supplied display text.
func CleanName(s string) string {
	return strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(s)))
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, Validationf("Invalid date %q", s)
	}
	return t, nil
}

// Timestamp is the format used for every created_at / uploaded_at field.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
