package metrics

import (
	"strings"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/shopspring/decimal"
)

// Amount buckets for the advances view, measured on principal advanced.
const (
	AmountAll       = "all"
	AmountUnder10k  = "under10k"
	Amount10kTo50k  = "10k-50k"
	Amount50kTo100k = "50k-100k"
	AmountOver100k  = "over100k"
	StatusFilterAll = "all"
)

var (
	tenThousand     = decimal.NewFromInt(10000)
	fiftyThousand   = decimal.NewFromInt(50000)
	hundredThousand = decimal.NewFromInt(100000)
)

// DealFilter narrows the advances list. Zero values match everything.
type DealFilter struct {
	Status string
	Search string
	Amount string
}

// FilterDeals returns the deals matching every criterion in f.
func FilterDeals(deals []models.Deal, f DealFilter) []models.Deal {
	status := strings.ToLower(strings.TrimSpace(f.Status))
	query := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if status != "" && status != StatusFilterAll && strings.ToLower(strings.TrimSpace(d.Status)) != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(d.QBOCustomerName), query) &&
			!strings.Contains(strings.ToLower(d.ClientName), query) {
			continue
		}
		if !inAmountBucket(d.PrincipalAdvanced, f.Amount) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func inAmountBucket(amount decimal.Decimal, bucket string) bool {
	switch bucket {
	case AmountUnder10k:
		return amount.LessThan(tenThousand)
	case Amount10kTo50k:
		return amount.GreaterThanOrEqual(tenThousand) && amount.LessThan(fiftyThousand)
	case Amount50kTo100k:
		return amount.GreaterThanOrEqual(fiftyThousand) && amount.LessThan(hundredThousand)
	case AmountOver100k:
		return amount.GreaterThanOrEqual(hundredThousand)
	default:
		return true
	}
}

// QuickStats is the summary strip shown above the advances table.
type QuickStats struct {
	ActiveDeals      int             `json:"activeDeals"`
	TotalDeals       int             `json:"totalDeals"`
	SyndicatedAmount decimal.Decimal `json:"syndicatedAmount"`
	TotalPayback     decimal.Decimal `json:"totalPayback"`
	AmountPaid       decimal.Decimal `json:"amountPaid"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	InterestEarned   decimal.Decimal `json:"interestEarned"`
}

// QuickStats totals a (usually filtered) deal list.
func (e *Engine) QuickStats(deals []models.Deal) QuickStats {
	qs := QuickStats{
		TotalDeals:       len(deals),
		SyndicatedAmount: decimal.Zero,
		TotalPayback:     decimal.Zero,
		AmountPaid:       decimal.Zero,
	}
	for _, d := range deals {
		if d.IsActive() {
			qs.ActiveDeals++
		}
		qs.SyndicatedAmount = qs.SyndicatedAmount.Add(d.FundedCapital())
		qs.TotalPayback = qs.TotalPayback.Add(e.Payback(d))
		qs.AmountPaid = qs.AmountPaid.Add(d.PrincipalCollected)
	}
	qs.RemainingBalance = clampZero(qs.TotalPayback.Sub(qs.AmountPaid))
	qs.InterestEarned = qs.TotalPayback.Sub(qs.SyndicatedAmount)
	return qs
}

// DealMetrics is the per-deal breakdown for the advances table.
type DealMetrics struct {
	Deal                  models.Deal     `json:"deal"`
	Payback               decimal.Decimal `json:"payback"`
	Remaining             decimal.Decimal `json:"remaining"`
	PaidBackPercent       decimal.Decimal `json:"paidBackPercent"`
	FactorRate            decimal.Decimal `json:"factorRate"`
	TotalInstallments     int64           `json:"totalInstallments"`
	RemainingInstallments int64           `json:"remainingInstallments"`
	PaymentCount          int             `json:"paymentCount"`
	PaymentsTotal         decimal.Decimal `json:"paymentsTotal"`
	AveragePayment        decimal.Decimal `json:"averagePayment"`
	ProjectedCompletion   *time.Time      `json:"projectedCompletion,omitempty"`
}

// clientKey normalizes a client name for joining deals to payout events.
// Only case and surrounding whitespace are ignored.
func clientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Breakdown computes the metrics of a single deal. Payout events are joined
// on client name, case-insensitively.
func (e *Engine) Breakdown(d models.Deal, events []models.PayoutEvent, now time.Time) DealMetrics {
	key := clientKey(d.ClientName)
	var matched []models.PayoutEvent
	if key != "" {
		for _, ev := range events {
			if clientKey(ev.ClientName) == key {
				matched = append(matched, ev)
			}
		}
	}
	return e.breakdown(d, matched, now)
}

// BreakdownAll computes metrics for every deal, grouping events once.
func (e *Engine) BreakdownAll(deals []models.Deal, events []models.PayoutEvent, now time.Time) []DealMetrics {
	byClient := make(map[string][]models.PayoutEvent)
	for _, ev := range events {
		if key := clientKey(ev.ClientName); key != "" {
			byClient[key] = append(byClient[key], ev)
		}
	}

	out := make([]DealMetrics, 0, len(deals))
	for _, d := range deals {
		out = append(out, e.breakdown(d, byClient[clientKey(d.ClientName)], now))
	}
	return out
}

func (e *Engine) breakdown(d models.Deal, matched []models.PayoutEvent, now time.Time) DealMetrics {
	m := DealMetrics{
		Deal:            d,
		Payback:         e.Payback(d),
		Remaining:       e.Remaining(d),
		PaidBackPercent: decimal.Zero,
		FactorRate:      e.cfg.DefaultFactorRate,
		PaymentCount:    len(matched),
		PaymentsTotal:   decimal.Zero,
		AveragePayment:  decimal.Zero,
	}
	if m.Payback.IsPositive() {
		m.PaidBackPercent = d.PrincipalCollected.Div(m.Payback).Mul(hundred)
	}
	if capital := d.FundedCapital(); capital.IsPositive() {
		m.FactorRate = m.Payback.Div(capital)
	}
	m.TotalInstallments, m.RemainingInstallments = e.installments(d)

	for _, ev := range matched {
		m.PaymentsTotal = m.PaymentsTotal.Add(ev.Amount)
	}
	if len(matched) > 0 {
		m.AveragePayment = m.PaymentsTotal.Div(decimal.NewFromInt(int64(len(matched))))
	}

	m.ProjectedCompletion = projectCompletion(d, m.Remaining, m.AveragePayment, now)
	return m
}

// projectCompletion estimates the payoff date from the best known daily
// payment: expected amount, then last payment, then the client's average.
func projectCompletion(d models.Deal, remaining, avgPayment decimal.Decimal, now time.Time) *time.Time {
	if !remaining.IsPositive() {
		return nil
	}

	daily := avgPayment
	switch {
	case d.ExpectedAmount.IsPositive():
		daily = d.ExpectedAmount
	case d.LastPaymentAmount.IsPositive():
		daily = d.LastPaymentAmount
	}
	if !daily.IsPositive() {
		return nil
	}

	if remaining.GreaterThan(daily.Mul(decimal.NewFromInt(maxProjectionBusinessDays))) {
		return nil
	}

	done := AddBusinessDays(now, int(ceilDiv(remaining, daily)))
	return &done
}

// maxProjectionBusinessDays is roughly ten years of weekdays. A payoff
// further out than that is reported as unknown.
const maxProjectionBusinessDays = 2610

// AddBusinessDays advances t by n weekdays, skipping Saturdays and Sundays.
func AddBusinessDays(t time.Time, n int) time.Time {
	if n <= 0 {
		return t
	}

	// Any seven consecutive days hold exactly five weekdays.
	weeks := (n - 1) / 5
	t = t.AddDate(0, 0, weeks*7)
	for added := weeks * 5; added < n; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return t
}
