package sheets

import (
	"context"

	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// Default tab names in the source spreadsheet.
const (
	DefaultDealsTab  = "Deals"
	DefaultPayoutTab = "Payout Events"
)

// Source provides the canonical deal and payout rows.
type Source interface {
	FetchDeals(ctx context.Context) ([]models.Deal, error)
	FetchPayoutEvents(ctx context.Context) ([]models.PayoutEvent, error)
}

// Static serves fixed raw rows. It backs mock data and tests.
type Static struct {
	DealRows   [][]string
	PayoutRows [][]string
}

func (s *Static) FetchDeals(ctx context.Context) ([]models.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return MapDeals(s.DealRows), nil
}

func (s *Static) FetchPayoutEvents(ctx context.Context) ([]models.PayoutEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return MapPayoutEvents(s.PayoutRows), nil
}
