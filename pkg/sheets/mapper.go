package sheets

import (
	"regexp"
	"strings"

	"github.com/mcclellann/rabbitfunding/pkg/models"
)

// Column positions in the Deals tab. Column 11 repeats the funded date and is ignored.
const (
	dealQBOCustomerID = iota
	dealQBOCustomerName
	dealContractID
	dealExpectedPaymentAmount
	dealActumMerchantID
	dealFundedDate
	dealPrincipalAdvanced
	dealDealID
	dealClientName
	dealPrincipalCollected
	dealStatus
	_
	dealExpectedAmount
	dealExpectedAmountLow
	dealExpectedAmountHigh
	dealUpdatedDate
	dealLastQBOJE
	dealLastPaymentDate
	dealLastPaymentAmount
	dealLastHistoryKeyID
	dealFeeCollected
	dealCustomerEmail
)

// Column positions in the Payout Events tab.
const (
	eventHistoryKey = iota
	eventOrderID
	eventSubID
	eventConsumerUniqueID
	eventClientName
	eventAmount
	eventPrincipalApplied
	eventFeeApplied
	eventTransactionDate
	eventProcessedDate
	eventQBOPrincipalJE
	eventQBOFeeJE
	eventMatchMethod
	eventAuthCode
	eventError
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeHeader lowercases a header cell and joins words with underscores,
// so "Purchase Price" becomes "purchase_price".
func NormalizeHeader(h string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_")
}

// header indexes the normalized header row of a tab.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := NormalizeHeader(name)
		if _, dup := h[key]; !dup && key != "" {
			h[key] = i
		}
	}
	return h
}

// index returns the column for name, or -1 when the tab has no such column.
func (h header) index(name string) int {
	if i, ok := h[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// MapDeals converts raw Deals rows into deals. The first row is the header.
func MapDeals(rows [][]string) []models.Deal {
	if len(rows) < 2 {
		return []models.Deal{}
	}
	h := newHeader(rows[0])
	purchasePrice := h.index("purchase_price")
	receivables := h.index("receivables_purchased_amount")
	origination := h.index("syndicated_amount_origination")

	deals := make([]models.Deal, 0, len(rows)-1)
	for i, row := range rows[1:] {
		deals = append(deals, models.Deal{
			ID:                          i + 1,
			QBOCustomerID:               cell(row, dealQBOCustomerID),
			QBOCustomerName:             cell(row, dealQBOCustomerName),
			ContractID:                  cell(row, dealContractID),
			ExpectedPaymentAmount:       models.ParseAmount(cell(row, dealExpectedPaymentAmount)),
			ActumMerchantID:             cell(row, dealActumMerchantID),
			FundedDate:                  cell(row, dealFundedDate),
			PrincipalAdvanced:           models.ParseAmount(cell(row, dealPrincipalAdvanced)),
			PurchasePrice:               models.ParseAmount(cell(row, purchasePrice)),
			ReceivablesPurchasedAmount:  models.ParseAmount(cell(row, receivables)),
			SyndicatedAmountOrigination: models.ParseAmount(cell(row, origination)),
			DealID:                      cell(row, dealDealID),
			ClientName:                  cell(row, dealClientName),
			PrincipalCollected:          models.ParseAmount(cell(row, dealPrincipalCollected)),
			Status:                      cell(row, dealStatus),
			ExpectedAmount:              models.ParseAmount(cell(row, dealExpectedAmount)),
			ExpectedAmountLow:           models.ParseAmount(cell(row, dealExpectedAmountLow)),
			ExpectedAmountHigh:          models.ParseAmount(cell(row, dealExpectedAmountHigh)),
			UpdatedDate:                 cell(row, dealUpdatedDate),
			LastQBOJE:                   cell(row, dealLastQBOJE),
			LastPaymentDate:             cell(row, dealLastPaymentDate),
			LastPaymentAmount:           models.ParseAmount(cell(row, dealLastPaymentAmount)),
			LastHistoryKeyID:            cell(row, dealLastHistoryKeyID),
			FeeCollected:                models.ParseAmount(cell(row, dealFeeCollected)),
			CustomerEmail:               cell(row, dealCustomerEmail),
		})
	}
	return deals
}

// MapPayoutEvents converts raw Payout Events rows into events. The first row is the header.
func MapPayoutEvents(rows [][]string) []models.PayoutEvent {
	if len(rows) < 2 {
		return []models.PayoutEvent{}
	}
	h := newHeader(rows[0])
	txType := h.index("transaction_type")

	events := make([]models.PayoutEvent, 0, len(rows)-1)
	for i, row := range rows[1:] {
		events = append(events, models.PayoutEvent{
			ID:               i + 1,
			HistoryKey:       cell(row, eventHistoryKey),
			OrderID:          cell(row, eventOrderID),
			SubID:            cell(row, eventSubID),
			ConsumerUniqueID: cell(row, eventConsumerUniqueID),
			ClientName:       cell(row, eventClientName),
			Amount:           models.ParseAmount(cell(row, eventAmount)),
			PrincipalApplied: models.ParseAmount(cell(row, eventPrincipalApplied)),
			FeeApplied:       models.ParseAmount(cell(row, eventFeeApplied)),
			TransactionDate:  cell(row, eventTransactionDate),
			ProcessedDate:    cell(row, eventProcessedDate),
			QBOPrincipalJE:   cell(row, eventQBOPrincipalJE),
			QBOFeeJE:         cell(row, eventQBOFeeJE),
			MatchMethod:      cell(row, eventMatchMethod),
			AuthCode:         cell(row, eventAuthCode),
			Error:            cell(row, eventError),
			TransactionType:  cell(row, txType),
		})
	}
	return events
}
