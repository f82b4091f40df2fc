// Package domain defines the entities a reconciliation run produces. Each is
// identified by its natural key; surrogate ids belong to the target database.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is the fixed reference record the bankers belong to.
type Branch struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Manager is a relationship manager ("universal banker"), keyed by Identifier.
type Manager struct {
	Identifier string `json:"nip"`
	Name       string `json:"name"`
}

// Product is an account product, keyed by Code.
type Product struct {
	Code        string
	DisplayName string
}

// ProductDisplayName is the name given to products discovered in the export.
func ProductDisplayName(code string) string { return "Produk " + code }

// Client is a bank customer, keyed by CIF.
type Client struct {
	CIF  string
	Name string
}

// Account is keyed by Number. ProductCode is empty when the export carries no
// product column at all.
type Account struct {
	Number           string
	ClientCIF        string
	ManagerID        string
	ProductCode      string
	Currency         string
	CurrentBalance   decimal.Decimal
	AvailableBalance decimal.Decimal
}

// Transaction is the opening balance snapshot recorded for an account.
type Transaction struct {
	AccountNumber string
	Balance       decimal.Decimal
	Date          time.Time
}
