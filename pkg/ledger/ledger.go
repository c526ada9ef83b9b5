package ledger

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/mcclellann/rabbitfunding/pkg/paging"
	"github.com/shopspring/decimal"
)

// DefaultPageSize is the number of ledger rows per page.
const DefaultPageSize = 50

const defaultDescription = "Payment"

// Config controls the projector.
type Config struct {
	PageSize int
}

// Projector turns payout events into the display ledger. It keeps no state
// between calls.
type Projector struct {
	cfg Config
}

// NewProjector creates a Projector with the given config.
func NewProjector(cfg Config) *Projector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Projector{cfg: cfg}
}

// PageSize returns the configured page size.
func (p *Projector) PageSize() int {
	return p.cfg.PageSize
}

// Project maps events to transactions, orders them newest first and
// annotates each row with the running balance as of that row.
func (p *Projector) Project(events []models.PayoutEvent) []models.Transaction {
	txs := make([]models.Transaction, 0, len(events))
	for i, ev := range events {
		txs = append(txs, toTransaction(i+1, ev))
	}

	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		if c := b.ParsedDate.Compare(a.ParsedDate); c != 0 {
			return c
		}
		return cmp.Compare(b.HistoryKey, a.HistoryKey)
	})

	// Accumulate oldest to newest, which is the reverse of display order.
	balance := decimal.Zero
	for i := len(txs) - 1; i >= 0; i-- {
		balance = balance.Add(txs[i].Amount)
		txs[i].Balance = balance
	}
	return txs
}

func toTransaction(id int, ev models.PayoutEvent) models.Transaction {
	description := strings.TrimSpace(ev.MatchMethod)
	if description == "" {
		description = defaultDescription
	}
	status := models.ClassifyPaymentStatus(ev.TransactionType)

	return models.Transaction{
		ID:               id,
		HistoryKey:       ev.HistoryKey,
		Date:             ev.TransactionDate,
		ParsedDate:       ParseDate(ev.TransactionDate),
		Client:           ev.ClientName,
		Amount:           ev.Amount,
		PrincipalApplied: ev.PrincipalApplied,
		FeeApplied:       ev.FeeApplied,
		Description:      description,
		Error:            ev.Error,
		Notes:            ev.Notes,
		TransactionType:  ev.TransactionType,
		PaymentStatus:    status,
		IsPending:        status == models.PaymentStatusPending,
		IsSettled:        status == models.PaymentStatusSettled,
		Edited:           ev.EditedAt != nil,
	}
}

// Paginate returns the requested page using the configured page size.
func (p *Projector) Paginate(txs []models.Transaction, page int) paging.Page[models.Transaction] {
	return paging.Slice(txs, page, p.cfg.PageSize)
}

// StatusSummary totals a ledger by payment status.
type StatusSummary struct {
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PendingCount  int             `json:"pendingCount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	SettledCount  int             `json:"settledCount"`
	SettledAmount decimal.Decimal `json:"settledAmount"`
}

// Summarize counts and totals the given transactions.
func Summarize(txs []models.Transaction) StatusSummary {
	s := StatusSummary{
		Count:         len(txs),
		TotalAmount:   decimal.Zero,
		PendingAmount: decimal.Zero,
		SettledAmount: decimal.Zero,
	}
	for _, tx := range txs {
		s.TotalAmount = s.TotalAmount.Add(tx.Amount)
		switch {
		case tx.IsPending:
			s.PendingCount++
			s.PendingAmount = s.PendingAmount.Add(tx.Amount)
		case tx.IsSettled:
			s.SettledCount++
			s.SettledAmount = s.SettledAmount.Add(tx.Amount)
		}
	}
	return s
}
