package ledger

import (
	"strings"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/models"
)

type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusPending StatusFilter = "pending"
	StatusSettled StatusFilter = "settled"
)

type DateRange string

const (
	RangeAll    DateRange = "all"
	Range7Days  DateRange = "7days"
	Range30Days DateRange = "30days"
	Range90Days DateRange = "90days"
	RangeYTD    DateRange = "ytd"
)

var rangeAliases = map[DateRange]DateRange{
	"last-7-days":  Range7Days,
	"last-30-days": Range30Days,
	"last-90-days": Range90Days,
	"year-to-date": RangeYTD,
}

// Canonical maps the long range names used by saved reports onto their
// short forms. Unknown values are returned unchanged.
func (r DateRange) Canonical() DateRange {
	if c, ok := rangeAliases[r]; ok {
		return c
	}
	return r
}

// Cutoff returns the earliest date included by the range, relative to now.
// The boolean is false when the range does not restrict dates.
//
// Transaction dates are calendar dates at UTC midnight, so the cutoff is
// built from the wall clock of now in UTC whatever its location.
func (r DateRange) Cutoff(now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	wall := time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)

	switch r.Canonical() {
	case Range7Days:
		return wall.AddDate(0, 0, -7), true
	case Range30Days:
		return wall.AddDate(0, 0, -30), true
	case Range90Days:
		return wall.AddDate(0, 0, -90), true
	case RangeYTD:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// Filter selects ledger rows. All set criteria must match.
type Filter struct {
	Search string       `json:"search"`
	Status StatusFilter `json:"status"`
	Range  DateRange    `json:"range"`
}

// Apply returns the transactions matching f, preserving order.
func Apply(txs []models.Transaction, f Filter, now time.Time) []models.Transaction {
	query := strings.ToLower(strings.TrimSpace(f.Search))
	cutoff, byDate := f.Range.Cutoff(now)

	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if query != "" && !strings.Contains(strings.ToLower(tx.Client), query) {
			continue
		}
		if f.Status == StatusPending && !tx.IsPending {
			continue
		}
		if f.Status == StatusSettled && !tx.IsSettled {
			continue
		}
		if byDate && tx.ParsedDate.Before(cutoff) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
