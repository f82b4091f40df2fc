package normalize

import (
	"fmt"
	"strings"
)

// Field is a logical column the pipeline reads. Physical headers are mapped
// onto fields once per dataset by Resolve.
type Field int

const (
	SourceManager Field = iota
	SourceAccount
	SourceCIF
	SourceClientName
	SourceBalance
	SourceAvailableBalance
	SourceCurrency
	SourceProduct
	SourceDate
	BaselineIdentifier
	BaselineName
	BaselineAccount

	numFields
)

var fieldNames = [numFields]string{
	SourceManager:          "source.manager",
	SourceAccount:          "source.account_number",
	SourceCIF:              "source.cif",
	SourceClientName:       "source.client_name",
	SourceBalance:          "source.balance",
	SourceAvailableBalance: "source.available_balance",
	SourceCurrency:         "source.currency",
	SourceProduct:          "source.product_code",
	SourceDate:             "source.date",
	BaselineIdentifier:     "baseline.identifier",
	BaselineName:           "baseline.name",
	BaselineAccount:        "baseline.account_number",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps a config key such as "source.cif" back to its Field.
func ParseField(s string) (Field, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldNames {
		if n == s {
			return Field(i), true
		}
	}
	return 0, false
}

// SourceFields lists every field read from the account export.
var SourceFields = []Field{
	SourceManager, SourceAccount, SourceCIF, SourceClientName, SourceBalance,
	SourceAvailableBalance, SourceCurrency, SourceProduct, SourceDate,
}

// BaselineFields lists every field read from the roster.
var BaselineFields = []Field{BaselineIdentifier, BaselineName, BaselineAccount}

// defaultHeaders is the lookup table of known header spellings per field, in
// preference order. The first entry is the header the bank exports use.
var defaultHeaders = [numFields][]string{
	SourceManager:          {"pn relationship officer / rm kredit menangah", "relationship officer", "rm"},
	SourceAccount:          {"account number", "no rekening", "rekening"},
	SourceCIF:              {"ciff no", "cif no", "cif"},
	SourceClientName:       {"short name", "client name", "nama nasabah"},
	SourceBalance:          {"balance", "current balance"},
	SourceAvailableBalance: {"available balance", "avail balance"},
	SourceCurrency:         {"curr code", "currency"},
	SourceProduct:          {"prod code", "product code"},
	SourceDate:             {"date", "as of date", "posting date", "tanggal"},
	BaselineIdentifier:     {"pn", "nip"},
	BaselineName:           {"nama", "name"},
	BaselineAccount:        {"rekening", "account number"},
}

// Aliases holds extra header spellings per field. They are tried before the
// built-in ones.
type Aliases map[Field][]string

// Candidates returns the header names tried for f, user aliases first.
func (a Aliases) Candidates(f Field) []string {
	out := make([]string, 0, len(a[f])+len(defaultHeaders[f]))
	out = append(out, a[f]...)
	if f >= 0 && f < numFields {
		out = append(out, defaultHeaders[f]...)
	}
	return out
}
