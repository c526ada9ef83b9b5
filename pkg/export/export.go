package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/ledger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Header is the fixed column order of a ledger export.
var Header = []string{"Date", "Client", "Status", "Principal Applied", "Fee Applied", "Amount", "Balance"}

const sheetName = "Ledger"

// StatusText is the status column value of an exported row.
func StatusText(tx models.Transaction) string {
	switch {
	case tx.IsPending:
		return "Pending"
	case tx.IsSettled:
		return "Settled"
	default:
		return "-"
	}
}

// Row renders one transaction in export column order.
func Row(tx models.Transaction) []string {
	return []string{
		ledger.FormatCSVDate(tx.Date),
		tx.Client,
		StatusText(tx),
		tx.PrincipalApplied.StringFixed(2),
		tx.FeeApplied.StringFixed(2),
		tx.Amount.StringFixed(2),
		tx.Balance.StringFixed(2),
	}
}

// WriteCSV writes the transactions as CSV with a header row.
func WriteCSV(out io.Writer, txs []models.Transaction) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, tx := range txs {
		if err := writer.Write(Row(tx)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the transactions to a single-sheet Excel workbook.
// Money columns are stored as numbers so they can be summed in Excel.
func WriteXLSX(out io.Writer, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write XLSX header: %w", err)
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			ledger.FormatCSVDate(tx.Date),
			tx.Client,
			StatusText(tx),
			tx.PrincipalApplied.Round(2).InexactFloat64(),
			tx.FeeApplied.Round(2).InexactFloat64(),
			tx.Amount.Round(2).InexactFloat64(),
			tx.Balance.Round(2).InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write XLSX row %d: %w", i+2, err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Filename is the download name for an export made at now, e.g.
// "rabbit-ledger-2026-02-18.csv".
func Filename(now time.Time, ext string) string {
	return fmt.Sprintf("rabbit-ledger-%s.%s", now.Format("2006-01-02"), ext)
}
