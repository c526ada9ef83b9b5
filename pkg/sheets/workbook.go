package sheets

import (
	"context"
	"fmt"

	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Workbook reads the deal and payout tabs from a local .xlsx export of the
// spreadsheet. The file is reopened on every fetch so edits are picked up.
type Workbook struct {
	Path      string
	DealsTab  string
	PayoutTab string
}

// NewWorkbook creates a Workbook source with the default tab names.
func NewWorkbook(path string) *Workbook {
	return &Workbook{Path: path, DealsTab: DefaultDealsTab, PayoutTab: DefaultPayoutTab}
}

func (w *Workbook) rows(ctx context.Context, tab string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", w.Path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", tab, err)
	}
	return rows, nil
}

func (w *Workbook) FetchDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := w.rows(ctx, w.DealsTab)
	if err != nil {
		return nil, err
	}
	return MapDeals(rows), nil
}

func (w *Workbook) FetchPayoutEvents(ctx context.Context) ([]models.PayoutEvent, error) {
	rows, err := w.rows(ctx, w.PayoutTab)
	if err != nil {
		return nil, err
	}
	return MapPayoutEvents(rows), nil
}
