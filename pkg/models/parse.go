package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "")

// ParseAmount converts a spreadsheet cell such as "$3,900.50" to a decimal.
// Blank or malformed values yield zero.
func ParseAmount(s string) decimal.Decimal {
	cleaned := strings.TrimSpace(amountReplacer.Replace(s))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
