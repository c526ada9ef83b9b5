package metrics

import (
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/shopspring/decimal"
)

// InstallmentSource names the deal field used as the per-deal installment size.
type InstallmentSource string

const (
	InstallmentLastPayment     InstallmentSource = "last_payment_amount"
	InstallmentExpectedPayment InstallmentSource = "expected_payment_amount"
)

var (
	// DefaultFactorRate is reported when there is no funded capital to divide by.
	DefaultFactorRate = decimal.RequireFromString("1.536")

	hundred = decimal.NewFromInt(100)
)

// Config controls the engine. It is passed in explicitly and never read from the environment.
type Config struct {
	DefaultFactorRate decimal.Decimal
	InstallmentSource InstallmentSource
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultFactorRate: DefaultFactorRate,
		InstallmentSource: InstallmentLastPayment,
	}
}

// Engine derives dashboard statistics from deal and payout rows.
// It holds no mutable state, so one Engine may be shared across goroutines.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine, filling unset config fields with defaults.
func NewEngine(cfg Config) *Engine {
	if !cfg.DefaultFactorRate.IsPositive() {
		cfg.DefaultFactorRate = DefaultFactorRate
	}
	switch cfg.InstallmentSource {
	case InstallmentLastPayment, InstallmentExpectedPayment:
	default:
		cfg.InstallmentSource = InstallmentLastPayment
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Payback is the amount the merchant owes back on a deal: the explicit
// receivables purchased amount when present, otherwise principal advanced
// times the default factor rate.
func (e *Engine) Payback(d models.Deal) decimal.Decimal {
	if d.ReceivablesPurchasedAmount.IsPositive() {
		return d.ReceivablesPurchasedAmount
	}
	return d.PrincipalAdvanced.Mul(e.cfg.DefaultFactorRate)
}

// Remaining is the uncollected payback on a deal, never below zero.
func (e *Engine) Remaining(d models.Deal) decimal.Decimal {
	return clampZero(e.Payback(d).Sub(d.PrincipalCollected))
}

func (e *Engine) installmentSize(d models.Deal) decimal.Decimal {
	if e.cfg.InstallmentSource == InstallmentExpectedPayment {
		return d.ExpectedPaymentAmount
	}
	return d.LastPaymentAmount
}

// installments returns the total and remaining installment counts for a deal.
// Deals without a positive installment size count as zero.
func (e *Engine) installments(d models.Deal) (total, remaining int64) {
	size := e.installmentSize(d)
	if !size.IsPositive() {
		return 0, 0
	}
	payback := e.Payback(d)
	if payback.IsPositive() {
		total = ceilDiv(payback, size)
	}
	if rem := e.Remaining(d); rem.IsPositive() {
		remaining = ceilDiv(rem, size)
	}
	return total, remaining
}

// Summarize reduces the full deal and payout lists to a StatsSummary.
// With no deals every figure is zero and the factor rate is the configured default.
func (e *Engine) Summarize(deals []models.Deal, events []models.PayoutEvent) models.StatsSummary {
	summary := models.StatsSummary{
		SyndicatedAmount:            decimal.Zero,
		SyndicatedAmountOrigination: decimal.Zero,
		TotalPayback:                decimal.Zero,
		AmountPaid:                  decimal.Zero,
		RemainingBalance:            decimal.Zero,
		InterestEarned:              decimal.Zero,
		FactorRate:                  e.cfg.DefaultFactorRate,
		AvgPaymentPerTransaction:    decimal.Zero,
		PaidBackPercent:             decimal.Zero,
	}
	if len(deals) == 0 {
		return summary
	}

	lastPaymentSum := decimal.Zero
	lastPaymentCount := 0

	for _, d := range deals {
		summary.SyndicatedAmount = summary.SyndicatedAmount.Add(d.FundedCapital())
		summary.SyndicatedAmountOrigination = summary.SyndicatedAmountOrigination.Add(d.SyndicatedAmountOrigination)
		summary.TotalPayback = summary.TotalPayback.Add(e.Payback(d))
		summary.AmountPaid = summary.AmountPaid.Add(d.PrincipalCollected)

		total, remaining := e.installments(d)
		summary.TotalTransactions += total
		summary.RemainingTransactions += remaining

		if d.LastPaymentAmount.IsPositive() {
			lastPaymentSum = lastPaymentSum.Add(d.LastPaymentAmount)
			lastPaymentCount++
		}
		if d.IsActive() {
			summary.ActiveDeals++
		}
	}

	if summary.SyndicatedAmount.IsPositive() {
		summary.FactorRate = summary.TotalPayback.Div(summary.SyndicatedAmount)
	}
	summary.InterestEarned = summary.TotalPayback.Sub(summary.SyndicatedAmount)
	summary.RemainingBalance = clampZero(summary.TotalPayback.Sub(summary.AmountPaid))
	if summary.TotalPayback.IsPositive() {
		summary.PaidBackPercent = summary.AmountPaid.Div(summary.TotalPayback).Mul(hundred)
	}
	if lastPaymentCount > 0 {
		summary.AvgPaymentPerTransaction = lastPaymentSum.Div(decimal.NewFromInt(int64(lastPaymentCount)))
	}
	summary.TotalDeals = len(deals)
	summary.TotalPayments = len(events)

	return summary
}

// ceilDiv returns ceil(a / b) for positive a and b without rounding error.
func ceilDiv(a, b decimal.Decimal) int64 {
	q, r := a.QuoRem(b, 0)
	n := q.IntPart()
	if r.IsPositive() {
		n++
	}
	return n
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
