package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deal is one funded merchant cash advance as it appears in the Deals sheet.
type Deal struct {
	ID                          int             `json:"id"` // Row position in the sheet, starting at 1
	QBOCustomerID               string          `json:"qbo_customer_id"`
	QBOCustomerName             string          `json:"qbo_customer_name"`
	ContractID                  string          `json:"contract_id"`
	ExpectedPaymentAmount       decimal.Decimal `json:"expected_payment_amount"`
	ActumMerchantID             string          `json:"actum_merchant_id"`
	FundedDate                  string          `json:"funded_date"`
	PrincipalAdvanced           decimal.Decimal `json:"principal_advanced"`
	PurchasePrice               decimal.Decimal `json:"purchase_price"`               // Zero when the sheet has no purchase price column
	ReceivablesPurchasedAmount  decimal.Decimal `json:"receivables_purchased_amount"` // Explicit payback, zero when absent
	SyndicatedAmountOrigination decimal.Decimal `json:"syndicated_amount_origination"`
	DealID                      string          `json:"deal_id"`
	ClientName                  string          `json:"client_name"`
	PrincipalCollected          decimal.Decimal `json:"principal_collected"`
	Status                      string          `json:"status"` // e.g., "active", "closed", "paid off"
	ExpectedAmount              decimal.Decimal `json:"expected_amount"`
	ExpectedAmountLow           decimal.Decimal `json:"expected_amount_low"`
	ExpectedAmountHigh          decimal.Decimal `json:"expected_amount_high"`
	UpdatedDate                 string          `json:"updated_date"`
	LastQBOJE                   string          `json:"last_qbo_je"`
	LastPaymentDate             string          `json:"last_payment_date"`
	LastPaymentAmount           decimal.Decimal `json:"last_payment_amount"`
	LastHistoryKeyID            string          `json:"last_historykey_id"`
	FeeCollected                decimal.Decimal `json:"fee_collected"`
	CustomerEmail               string          `json:"customer_email"`
}

// FundedCapital is the purchase price when the sheet supplies one, otherwise
// the principal advanced.
func (d Deal) FundedCapital() decimal.Decimal {
	if d.PurchasePrice.IsPositive() {
		return d.PurchasePrice
	}
	return d.PrincipalAdvanced
}

// IsActive reports whether the deal status is "active", ignoring case.
func (d Deal) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(d.Status), "active")
}

// PayoutEvent is one repayment row from the Payout Events sheet.
type PayoutEvent struct {
	ID               int             `json:"id"`
	HistoryKey       string          `json:"history_keyid"`
	OrderID          string          `json:"order_id"`
	SubID            string          `json:"sub_id"`
	ConsumerUniqueID string          `json:"consumer_unique_id"`
	ClientName       string          `json:"client_name"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalApplied decimal.Decimal `json:"principal_applied"`
	FeeApplied       decimal.Decimal `json:"fee_applied"`
	TransactionDate  string          `json:"transaction_date"`
	ProcessedDate    string          `json:"processed_date"`
	QBOPrincipalJE   string          `json:"qbo_principal_je"`
	QBOFeeJE         string          `json:"qbo_fee_je"`
	MatchMethod      string          `json:"match_method"`
	AuthCode         string          `json:"auth_code"`
	Error            string          `json:"error"`
	TransactionType  string          `json:"transaction_type"` // Upstream pending/settled flag
	Notes            string          `json:"notes,omitempty"`
	EditedAt         *time.Time      `json:"edited_at,omitempty"`
}

type PaymentStatus string

const (
	PaymentStatusUnknown PaymentStatus = "unknown"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSettled PaymentStatus = "settled"
)

// ClassifyPaymentStatus maps the upstream transaction-type flag to a status.
// Anything other than "pending" or "settled" is unknown.
func ClassifyPaymentStatus(flag string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "pending":
		return PaymentStatusPending
	case "settled":
		return PaymentStatusSettled
	default:
		return PaymentStatusUnknown
	}
}

// StatsSummary is the aggregate dashboard snapshot. It is never stored.
type StatsSummary struct {
	SyndicatedAmount            decimal.Decimal `json:"syndicatedAmount"`
	SyndicatedAmountOrigination decimal.Decimal `json:"syndicatedAmountOrigination"`
	TotalPayback                decimal.Decimal `json:"totalPayback"`
	AmountPaid                  decimal.Decimal `json:"amountPaid"`
	RemainingBalance            decimal.Decimal `json:"remainingBalance"`
	InterestEarned              decimal.Decimal `json:"interestEarned"`
	FactorRate                  decimal.Decimal `json:"factorRate"`
	TotalTransactions           int64           `json:"totalTransactions"`
	RemainingTransactions       int64           `json:"remainingTransactions"`
	AvgPaymentPerTransaction    decimal.Decimal `json:"avgPaymentPerTransaction"`
	TotalPayments               int             `json:"totalPaymentsCount"`
	PaidBackPercent             decimal.Decimal `json:"paidBackPercent"`
	ActiveDeals                 int             `json:"activeDeals"`
	TotalDeals                  int             `json:"totalDeals"`
}

// Transaction is a ledger row derived from a PayoutEvent.
type Transaction struct {
	ID               int             `json:"id"`
	HistoryKey       string          `json:"historyKey"`
	Date             string          `json:"date"`
	ParsedDate       time.Time       `json:"parsedDate"`
	Client           string          `json:"client"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalApplied decimal.Decimal `json:"principalApplied"`
	FeeApplied       decimal.Decimal `json:"feeApplied"`
	Balance          decimal.Decimal `json:"balance"`
	Description      string          `json:"description"`
	Error            string          `json:"error"`
	Notes            string          `json:"notes,omitempty"`
	TransactionType  string          `json:"transactionType"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	IsPending        bool            `json:"isPending"`
	IsSettled        bool            `json:"isSettled"`
	Edited           bool            `json:"edited"`
}

// TransactionEdit is a user correction to a payout event, keyed by history key.
// Nil fields leave the upstream value untouched.
type TransactionEdit struct {
	HistoryKey       string           `json:"historyKey"`
	Client           *string          `json:"client,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	PrincipalApplied *decimal.Decimal `json:"principalApplied,omitempty"`
	FeeApplied       *decimal.Decimal `json:"feeApplied,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Error            *string          `json:"error,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	EditedAt         time.Time        `json:"editedAt"`
}

// SavedReport records the filters and totals of a generated ledger report.
type SavedReport struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	DateRange        string          `json:"dateRange"`
	SearchQuery      string          `json:"searchQuery"`
	StatusFilter     string          `json:"statusFilter"`
	TransactionCount int             `json:"transactionCount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

// User is a dashboard account. Accounts start pending until an admin approves them.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
}
