package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/ledger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixture() []models.Transaction {
	d := decimal.RequireFromString
	return ledger.NewProjector(ledger.Config{}).Project([]models.PayoutEvent{
		{HistoryKey: "H1", ClientName: "ACME Corp", TransactionDate: "2026-02-01", Amount: d("500"), PrincipalApplied: d("400"), FeeApplied: d("100"), TransactionType: "settled"},
		{HistoryKey: "H2", ClientName: "Smith, Jones & Co", TransactionDate: "FEB 10, 2026 02:01PM", Amount: d("300.5"), PrincipalApplied: d("250.5"), FeeApplied: d("50"), TransactionType: "pending"},
		{HistoryKey: "H3", ClientName: "Nobody", TransactionDate: "someday", Amount: d("1")},
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, fixture()))

	want := "Date,Client,Status,Principal Applied,Fee Applied,Amount,Balance\n" +
		"02/10/2026,\"Smith, Jones & Co\",Pending,250.50,50.00,300.50,801.50\n" +
		"02/01/2026,ACME Corp,Settled,400.00,100.00,500.00,501.00\n" +
		"someday,Nobody,-,0.00,0.00,1.00,1.00\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "Date,Client,Status,Principal Applied,Fee Applied,Amount,Balance\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, fixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"02/10/2026", "Smith, Jones & Co", "Pending"}, rows[1][:3])
	assert.Equal(t, "801.5", rows[1][6])
	assert.Equal(t, "Settled", rows[2][2])
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, time.February, 18, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "rabbit-ledger-2026-02-18.csv", Filename(now, "csv"))
	assert.Equal(t, "rabbit-ledger-2026-02-18.xlsx", Filename(now, "xlsx"))
}
