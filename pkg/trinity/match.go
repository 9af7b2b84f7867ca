package trinity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	nonAlnumLower = regexp.MustCompile(`[^a-z0-9]`)
	nonAlnumUpper = regexp.MustCompile(`[^A-Z0-9]`)
	whitespace    = regexp.MustCompile(`\s+`)

	// 1-3 letters, 1-4 digits, optional trailing letter: "WA 1234 F", "JHB88".
	platePattern = regexp.MustCompile(`[A-Z]{1,3}\s?\d{1,4}\s?[A-Z]?`)
)

// FuzzyMatch scores two names: 1.0 when their canonical forms are equal,
// 0.8 when one contains the other, 0 otherwise. Blank input scores 0.
func FuzzyMatch(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ca := canonicalText(a)
	cb := canonicalText(b)
	switch {
	case ca == cb:
		return 1.0
	case strings.Contains(ca, cb) || strings.Contains(cb, ca):
		return 0.8
	default:
		return 0
	}
}

// canonicalText lowercases and drops everything but a-z and 0-9.
func canonicalText(s string) string {
	return nonAlnumLower.ReplaceAllString(strings.ToLower(s), "")
}

// CanonicalID uppercases an identity number and drops separators.
func CanonicalID(s string) string {
	return nonAlnumUpper.ReplaceAllString(strings.ToUpper(s), "")
}

// CanonicalPlate uppercases a plate or chassis number and drops whitespace.
func CanonicalPlate(s string) string {
	return whitespace.ReplaceAllString(strings.ToUpper(s), "")
}

// ExtractPlate finds the first plate-shaped token in free text.
func ExtractPlate(text string) (string, bool) {
	m := platePattern.FindString(strings.ToUpper(text))
	if m == "" {
		return "", false
	}
	return CanonicalPlate(m), true
}

// containsEither reports substring containment in either direction over
// canonical text. Blank sides never match.
func containsEither(a, b string) bool {
	ca, cb := canonicalText(a), canonicalText(b)
	if ca == "" || cb == "" {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// ParseDate reads the date formats extractors emit and truncates to the day.
// Slash and dash day-first forms are read as DD/MM/YYYY.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
