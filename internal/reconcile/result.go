package reconcile

import (
	"errors"
	"sort"

	"dmlgen/internal/domain"
	"dmlgen/internal/normalize"
)

// ErrRowProcessing wraps an unexpected failure while evaluating one row. The
// row is skipped and the run continues.
var ErrRowProcessing = errors.New("row processing error")

// SkipReason says why a row, or one entity a row would have produced, was
// left out of the output.
type SkipReason string

const (
	SkipNoManager          SkipReason = "no_manager"
	SkipBadIdentifier      SkipReason = "bad_identifier"
	SkipUnknownManager     SkipReason = "unknown_manager"
	SkipNotInBaseline      SkipReason = "not_in_baseline"
	SkipIdentifierMismatch SkipReason = "identifier_mismatch"
	SkipMissingClientField SkipReason = "missing_client_field"
	SkipMissingAcctField   SkipReason = "missing_account_field"
	SkipClientUnavailable  SkipReason = "client_unavailable"
	SkipRowError           SkipReason = "row_error"
)

// Warning counts conditions that were tolerated with a substitute value.
type Warning string

const (
	WarnIdentifierMismatch Warning = "identifier_mismatch_accepted"
	WarnBalanceDefaulted   Warning = "balance_defaulted"
	WarnDateDefaulted      Warning = "date_defaulted"
	WarnDuplicateClient    Warning = "duplicate_client"
	WarnDuplicateAccount   Warning = "duplicate_account"
)

// RowResult is the outcome of one source row. Reason is set when the row was
// filtered out before entity extraction; EntitySkips lists entities the row
// could not produce even though it passed the filters.
type RowResult struct {
	Line        int
	Reason      SkipReason
	Detail      string
	EntitySkips []SkipReason
	Client      bool
	Account     bool
}

// Skipped reports whether the row contributed no client and no account.
func (r RowResult) Skipped() bool {
	return r.Reason != "" || (!r.Client && !r.Account)
}

// Funnel counts rows surviving each filter stage, in stage order.
type Funnel struct {
	Rows         int
	Admitted     int
	Identified   int
	ValidManager int
	Joined       int
}

// Summary aggregates all row results of a run.
type Summary struct {
	Funnel   Funnel
	Skipped  map[SkipReason]int
	Warnings map[Warning]int
}

func newSummary() Summary {
	return Summary{Skipped: map[SkipReason]int{}, Warnings: map[Warning]int{}}
}

// ReasonCount is one entry of a sorted summary listing.
type ReasonCount struct {
	Name  string
	Count int
}

// SortedSkips lists skip counts by descending count, then name.
func (s Summary) SortedSkips() []ReasonCount {
	out := make([]ReasonCount, 0, len(s.Skipped))
	for k, v := range s.Skipped {
		out = append(out, ReasonCount{Name: string(k), Count: v})
	}
	sortCounts(out)
	return out
}

// SortedWarnings lists warning counts by descending count, then name.
func (s Summary) SortedWarnings() []ReasonCount {
	out := make([]ReasonCount, 0, len(s.Warnings))
	for k, v := range s.Warnings {
		out = append(out, ReasonCount{Name: string(k), Count: v})
	}
	sortCounts(out)
	return out
}

func sortCounts(rc []ReasonCount) {
	sort.Slice(rc, func(i, j int) bool {
		if rc[i].Count != rc[j].Count {
			return rc[i].Count > rc[j].Count
		}
		return rc[i].Name < rc[j].Name
	})
}

// Block names an output block whose inputs come from the source export.
type Block string

const (
	BlockProducts     Block = "account_products"
	BlockClients      Block = "clients"
	BlockAccounts     Block = "accounts"
	BlockTransactions Block = "account_transactions"
)

// BlockStatus records which logical columns a block needed but did not find.
// A block with missing columns is emitted as a placeholder comment.
type BlockStatus struct {
	Missing []normalize.Field
}

// Available reports whether the block could be produced.
func (b BlockStatus) Available() bool { return len(b.Missing) == 0 }

// Result is everything one reconciliation pass produced. Entity slices are in
// first-seen source order.
type Result struct {
	Products     []domain.Product
	Clients      []domain.Client
	Accounts     []domain.Account
	Transactions []domain.Transaction

	Blocks  map[Block]BlockStatus
	Rows    []RowResult
	Summary Summary
}

// Status returns the availability of block b.
func (r *Result) Status(b Block) BlockStatus { return r.Blocks[b] }
