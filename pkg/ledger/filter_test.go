package ledger

import (
	"slices"
	"testing"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/stretchr/testify/assert"
)

var filterNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func filterFixture() []models.Transaction {
	return NewProjector(Config{}).Project([]models.PayoutEvent{
		event("H1", "ACME Corp", "2026-03-10", "100", "pending"),
		event("H2", "Other LLC", "2026-03-01", "200", "settled"),
		event("H3", "ACME Corp", "JAN 5, 2026 02:01PM", "300", "settled"),
		event("H4", "Other LLC", "2025-12-20", "400", "pending"),
		event("H5", "acme corp", "2025-06-01", "500", ""),
	})
}

func keys(txs []models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.HistoryKey)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter", Filter{}, []string{"H1", "H2", "H3", "H4", "H5"}},
		{"all keywords", Filter{Status: StatusAll, Range: RangeAll}, []string{"H1", "H2", "H3", "H4", "H5"}},
		{"search is case insensitive", Filter{Search: "acme"}, []string{"H1", "H3", "H5"}},
		{"search substring", Filter{Search: " LLC "}, []string{"H2", "H4"}},
		{"pending", Filter{Status: StatusPending}, []string{"H1", "H4"}},
		{"settled", Filter{Status: StatusSettled}, []string{"H2", "H3"}},
		{"last 7 days", Filter{Range: Range7Days}, []string{"H1"}},
		{"last 30 days", Filter{Range: Range30Days}, []string{"H1", "H2"}},
		{"last 90 days", Filter{Range: Range90Days}, []string{"H1", "H2", "H3", "H4"}},
		{"year to date", Filter{Range: RangeYTD}, []string{"H1", "H2", "H3"}},
		{"last-7-days alias", Filter{Range: "last-7-days"}, []string{"H1"}},
		{"last-30-days alias", Filter{Range: "last-30-days"}, []string{"H1", "H2"}},
		{"last-90-days alias", Filter{Range: "last-90-days"}, []string{"H1", "H2", "H3", "H4"}},
		{"year-to-date alias", Filter{Range: "year-to-date"}, []string{"H1", "H2", "H3"}},
		{"unknown range keeps everything", Filter{Range: "fortnight"}, []string{"H1", "H2", "H3", "H4", "H5"}},
		{"combined", Filter{Search: "acme", Status: StatusSettled, Range: RangeYTD}, []string{"H3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(Apply(filterFixture(), tt.filter, filterNow)))
		})
	}
}

func TestApply_SearchOnlyMatchingClient(t *testing.T) {
	txs := NewProjector(Config{}).Project([]models.PayoutEvent{
		event("H1", "ACME Corp", "2026-02-01", "1", ""),
		event("H2", "Other LLC", "2026-02-02", "1", ""),
	})

	got := Apply(txs, Filter{Search: "acme"}, filterNow)

	assert.Equal(t, []string{"H1"}, keys(got))
}

func TestApply_IsIntersectionOfFilters(t *testing.T) {
	txs := filterFixture()
	searches := []string{"", "acme", "llc", "zzz"}
	statuses := []StatusFilter{StatusAll, StatusPending, StatusSettled}
	ranges := []DateRange{RangeAll, Range7Days, Range30Days, Range90Days, RangeYTD}

	for _, search := range searches {
		for _, status := range statuses {
			for _, dr := range ranges {
				combined := keys(Apply(txs, Filter{Search: search, Status: status, Range: dr}, filterNow))

				bySearch := keys(Apply(txs, Filter{Search: search}, filterNow))
				byStatus := keys(Apply(txs, Filter{Status: status}, filterNow))
				byRange := keys(Apply(txs, Filter{Range: dr}, filterNow))

				var want []string
				for _, k := range bySearch {
					if slices.Contains(byStatus, k) && slices.Contains(byRange, k) {
						want = append(want, k)
					}
				}
				assert.ElementsMatch(t, want, combined, "search=%q status=%s range=%s", search, status, dr)
			}
		}
	}
}

func TestDateRangeCutoff(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2026, time.July, 4, 15, 30, 0, 0, loc)

	cutoff, ok := RangeYTD.Cutoff(now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), cutoff)

	cutoff, ok = Range30Days.Cutoff(now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.June, 4, 15, 30, 0, 0, time.UTC), cutoff)

	_, ok = RangeAll.Cutoff(now)
	assert.False(t, ok)
}

func TestApply_YearToDateWestOfUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, est)
	txs := NewProjector(Config{}).Project([]models.PayoutEvent{
		event("H1", "ACME Corp", "2026-01-01", "100", "settled"),
		event("H2", "ACME Corp", "JAN 1, 2026 09:00AM", "200", "settled"),
		event("H3", "ACME Corp", "2025-12-31", "300", "settled"),
	})

	got := Apply(txs, Filter{Range: RangeYTD}, now)

	assert.ElementsMatch(t, []string{"H1", "H2"}, keys(got))
}

func TestDateRangeCanonical(t *testing.T) {
	assert.Equal(t, Range7Days, DateRange("last-7-days").Canonical())
	assert.Equal(t, Range30Days, DateRange("last-30-days").Canonical())
	assert.Equal(t, Range90Days, DateRange("last-90-days").Canonical())
	assert.Equal(t, RangeYTD, DateRange("year-to-date").Canonical())
	assert.Equal(t, RangeYTD, RangeYTD.Canonical())
	assert.Equal(t, DateRange("fortnight"), DateRange("fortnight").Canonical())
}
