// Package search implements the case-insensitive service filter.
package search

import (
	"strings"

	"github.com/dtg01100/systemctl-manager/internal/models"
)

// Filter holds the current lowercase search text. The zero value matches
// everything.
type Filter struct {
	text string
}

// New returns a filter set to text.
func New(text string) Filter {
	var f Filter
	f.Set(text)
	return f
}

// Set replaces the filter text. Surrounding whitespace is kept.
func (f *Filter) Set(text string) {
	f.text = strings.ToLower(text)
}

// Text returns the lowercase filter text.
func (f Filter) Text() string {
	return f.text
}

// Active reports whether the filter excludes anything.
func (f Filter) Active() bool {
	return f.text != ""
}

// Matches reports whether the record's name or description contains the
// filter text, ignoring case.
func (f Filter) Matches(r models.ServiceRecord) bool {
	if f.text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), f.text) ||
		strings.Contains(strings.ToLower(r.Description), f.text)
}
