package ledger

import (
	"regexp"
	"strings"
	"time"
)

var (
	// Epoch is what unparseable dates resolve to, so they sort last.
	Epoch = time.Unix(0, 0).UTC()

	meridiemTime = regexp.MustCompile(`(?i)\s*\d{1,2}:\d{2}\s*(AM|PM)`)
	clockTime    = regexp.MustCompile(`\s*\d{1,2}:\d{2}:\d{2}`)

	// Month names match case-insensitively, so "JAN 13, 2026" parses.
	dateLayouts = []string{
		"2006-01-02",
		"Jan 2, 2006",
		"Jan 2 2006",
		"January 2, 2006",
		"1/2/2006",
	}
)

// stripTime removes "02:01PM" and "05:31:21" style clock parts.
func stripTime(s string) string {
	s = meridiemTime.ReplaceAllString(s, "")
	s = clockTime.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseDate reads the date forms found in the payout sheet, such as
// "2026-02-18 05:31:21", "JAN 13, 2026 02:01PM" and "02/17/2026".
// The time of day is dropped. Anything unrecognised returns Epoch.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateOnly(t)
	}

	cleaned := stripTime(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t
		}
	}
	return Epoch
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatCSVDate renders a sheet date as MM/DD/YYYY. Unparseable input is
// returned with its clock part removed.
func FormatCSVDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	t := ParseDate(s)
	if t.Equal(Epoch) {
		return stripTime(s)
	}
	return t.Format("01/02/2006")
}
