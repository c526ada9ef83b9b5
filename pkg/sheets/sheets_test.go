package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var dealRows = [][]string{
	{"QBO Customer ID", "QBO Customer Name", "Contract ID", "Expected Payment Amount", "Actum Merchant ID", "Funded Date",
		"Principal Advanced", "Deal ID", "Client Name", "Principal Collected", "Status", "Funded Date", "Expected Amount",
		"Expected Amount Low", "Expected Amount High", "Updated Date", "Last QBO JE", "Last Payment Date", "Last Payment Amount",
		"Last HistoryKey ID", "Fee Collected", "Customer Email", "Receivables  Purchased Amount", "Purchase Price"},
	{"C-1", "Acme Corporation", "K-9", "$512", "M-1", "2026-01-05", "$10,000", "D-1", "ACME Corp", "7,680", "Active", "2026-01-05",
		"500", "450", "550", "2026-02-18", "JE-1", "2026-02-17", "512", "H9", "$1,200.50", "ops@acme.test", "15,360", ""},
	{"C-2", "Short Row"},
}

var payoutRows = [][]string{
	{"History KeyID", "Order ID", "SubID", "Consumer Unique ID", "Client Name", "Amount", "Principal Applied", "Fee Applied",
		"Transaction Date", "Processed Date", "QBO Principal JE", "QBO Fee JE", "Match Method", "Auth Code", "Error", "Transaction Type"},
	{"H1", "O-1", "S-1", "U-1", "ACME Corp", "$512.00", "400", "112", "JAN 13, 2026 02:01PM", "2026-01-14", "PJ", "FJ", "", "A1", "", "Settled"},
	{"H2", "O-2", "", "", "ACME Corp", "bad", "", "", "2026-02-18 05:31:21"},
}

func TestMapDeals(t *testing.T) {
	deals := MapDeals(dealRows)

	require.Len(t, deals, 2)
	d := deals[0]
	assert.Equal(t, 1, d.ID)
	assert.Equal(t, "Acme Corporation", d.QBOCustomerName)
	assert.Equal(t, "ACME Corp", d.ClientName)
	assert.Equal(t, "Active", d.Status)
	assert.True(t, d.PrincipalAdvanced.Equal(decimal.NewFromInt(10000)))
	assert.True(t, d.PrincipalCollected.Equal(decimal.NewFromInt(7680)))
	assert.True(t, d.ExpectedPaymentAmount.Equal(decimal.NewFromInt(512)))
	assert.True(t, d.LastPaymentAmount.Equal(decimal.NewFromInt(512)))
	assert.True(t, d.FeeCollected.Equal(decimal.RequireFromString("1200.50")))
	assert.True(t, d.ReceivablesPurchasedAmount.Equal(decimal.NewFromInt(15360)))
	assert.True(t, d.PurchasePrice.IsZero())
	assert.Equal(t, "ops@acme.test", d.CustomerEmail)

	short := deals[1]
	assert.Equal(t, 2, short.ID)
	assert.Equal(t, "Short Row", short.QBOCustomerName)
	assert.True(t, short.PrincipalAdvanced.IsZero())
	assert.Empty(t, short.Status)
}

func TestMapPayoutEvents(t *testing.T) {
	events := MapPayoutEvents(payoutRows)

	require.Len(t, events, 2)
	ev := events[0]
	assert.Equal(t, "H1", ev.HistoryKey)
	assert.Equal(t, "ACME Corp", ev.ClientName)
	assert.True(t, ev.Amount.Equal(decimal.NewFromInt(512)))
	assert.True(t, ev.PrincipalApplied.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "JAN 13, 2026 02:01PM", ev.TransactionDate)
	assert.Equal(t, "Settled", ev.TransactionType)

	assert.True(t, events[1].Amount.IsZero())
	assert.Empty(t, events[1].TransactionType)
}

func TestMap_EmptyInput(t *testing.T) {
	assert.Empty(t, MapDeals(nil))
	assert.NotNil(t, MapDeals(nil))
	assert.Empty(t, MapPayoutEvents([][]string{{"History KeyID"}}))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "purchase_price", NormalizeHeader("Purchase Price"))
	assert.Equal(t, "receivables_purchased_amount", NormalizeHeader(" Receivables  Purchased\tAmount "))
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v4/spreadsheets/sheet-123/values/Deals":
			json.NewEncoder(w).Encode(map[string]interface{}{"values": dealRows})
		case "/v4/spreadsheets/sheet-123/values/Payout Events":
			json.NewEncoder(w).Encode(map[string]interface{}{"values": payoutRows})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "Unable to parse range"}})
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SpreadsheetID: "sheet-123", APIKey: "secret"})

	deals, err := c.FetchDeals(context.Background())
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	events, err := c.FetchPayoutEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestClient_TransportErrorOmitsAPIKey(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", SpreadsheetID: "sid", APIKey: "SUPERSECRETKEY"})

	_, err := c.FetchDeals(context.Background())

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, SpreadsheetID: "x", APIKey: "bad"})

	_, err := c.FetchDeals(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "API key not valid", apiErr.Message)
}

func TestClient_EmptySheet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"range":"Deals!A1:Z1000","majorDimension":"ROWS"}`))
	}))
	defer srv.Close()

	deals, err := NewClient(ClientConfig{BaseURL: srv.URL, SpreadsheetID: "x"}).FetchDeals(context.Background())

	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(ClientConfig{BaseURL: srv.URL, SpreadsheetID: "x"}).FetchPayoutEvents(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", DefaultDealsTab))
	_, err := f.NewSheet(DefaultPayoutTab)
	require.NoError(t, err)

	for tab, rows := range map[string][][]string{DefaultDealsTab: dealRows, DefaultPayoutTab: payoutRows} {
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			require.NoError(t, f.SetSheetRow(tab, cellName, &values))
		}
	}

	path := filepath.Join(t.TempDir(), "feed.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestWorkbook_Fetch(t *testing.T) {
	w := NewWorkbook(writeWorkbook(t))

	deals, err := w.FetchDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.True(t, deals[0].ReceivablesPurchasedAmount.Equal(decimal.NewFromInt(15360)))

	events, err := w.FetchPayoutEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "H2", events[1].HistoryKey)
}

func TestWorkbook_MissingFile(t *testing.T) {
	w := NewWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))

	_, err := w.FetchDeals(context.Background())

	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := &Static{DealRows: dealRows, PayoutRows: payoutRows}

	deals, err := s.FetchDeals(context.Background())
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	events, err := s.FetchPayoutEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
