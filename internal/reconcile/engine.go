// Package reconcile validates source export rows against the baseline roster
// and extracts deduplicated clients, accounts, transactions and products.
//
// Row filtering runs in a fixed stage order; later stages assume the earlier
// ones already removed rows:
//
//  1. admission: the manager field must be present and not "-"
//  2. identifier derivation from "<digits> - <name>"
//  3. the derived identifier must be a valid manager
//  4. account numbers are canonicalized on read ("12345.0" -> "12345")
//  5. the account must exist in the baseline; the baseline's manager wins
//  6. entity extraction with first-seen dedup per entity kind
//  7. each entity is produced completely or not at all
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"dmlgen/internal/baseline"
	"dmlgen/internal/dataset"
	"dmlgen/internal/domain"
	"dmlgen/internal/identifier"
	"dmlgen/internal/normalize"

	"github.com/shopspring/decimal"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger and *logrus.Entry satisfy it.
type Logger interface {
	Printf(format string, v ...any)
}

// Validator decides which manager identifiers may own accounts.
type Validator interface {
	Valid(id string) bool
}

// IdentifierSet is a fixed Validator, used when managers come from a
// configured list instead of the roster.
type IdentifierSet map[string]struct{}

// NewIdentifierSet builds a set from ids, ignoring blanks.
func NewIdentifierSet(ids ...string) IdentifierSet {
	s := make(IdentifierSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Valid implements Validator.
func (s IdentifierSet) Valid(id string) bool {
	_, ok := s[id]
	return ok
}

// MismatchPolicy decides what happens when the manager derived from a source
// row differs from the manager the roster assigns to that account.
type MismatchPolicy int

const (
	// AcceptBaseline keeps the row and uses the roster's manager.
	AcceptBaseline MismatchPolicy = iota
	// RejectMismatch drops the row.
	RejectMismatch
)

// ParseMismatchPolicy accepts "accept" (default) and "reject".
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accept", "accept_baseline":
		return AcceptBaseline, nil
	case "reject":
		return RejectMismatch, nil
	default:
		return AcceptBaseline, fmt.Errorf("unknown identifier mismatch policy %q (want accept|reject)", s)
	}
}

// Engine runs one reconciliation pass. The zero value is usable.
type Engine struct {
	Logger   Logger
	Mismatch MismatchPolicy

	// Now supplies the fallback transaction date. Defaults to time.Now.
	Now func() time.Time

	// OnSkip, when set, is called for every row that produced nothing.
	OnSkip func(res RowResult, row dataset.Row)
}

var (
	clientCols  = []normalize.Field{normalize.SourceManager, normalize.SourceAccount, normalize.SourceCIF, normalize.SourceClientName}
	accountCols = []normalize.Field{normalize.SourceManager, normalize.SourceAccount, normalize.SourceCIF, normalize.SourceCurrency}
	rosterCols  = []normalize.Field{normalize.BaselineIdentifier, normalize.BaselineAccount}
)

// Run reconciles src (already header-normalized and resolved into m) against
// idx. valid decides manager validity; pass idx itself when managers come
// from the roster.
//
// Row-level problems never fail the run. Run returns an error only when ctx
// is canceled.
func (e *Engine) Run(ctx context.Context, src *dataset.Dataset, m normalize.Mapping, idx *baseline.Index, valid Validator) (*Result, error) {
	logf := e.logger()
	now := e.Now
	if now == nil {
		now = time.Now
	}
	if valid == nil {
		valid = idx
	}

	res := &Result{Blocks: blockStatus(m, idx), Summary: newSummary()}
	res.Summary.Funnel.Rows = src.Len()

	start := time.Now()
	res.Products = collectProducts(src, m)
	logf("stage=products distinct=%d duration=%s", len(res.Products), time.Since(start).Truncate(time.Millisecond))

	clientsOn := res.Status(BlockClients).Available()
	accountsOn := res.Status(BlockAccounts).Available()
	if !clientsOn && !accountsOn {
		logf("stage=reconcile skipped missing_columns=%v", res.Status(BlockAccounts).Missing)
		return res, nil
	}

	start = time.Now()
	p := &pass{
		e:          e,
		m:          m,
		idx:        idx,
		valid:      valid,
		now:        now,
		clientsOn:  clientsOn,
		accountsOn: accountsOn,
		hasProduct: m.Has(normalize.SourceProduct),
		hasDate:    m.Has(normalize.SourceDate),
		clients:    make(map[string]struct{}),
		accounts:   make(map[string]struct{}),
		res:        res,
	}
	for i, row := range src.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rr := p.row(row)
		res.Rows = append(res.Rows, rr)
		p.count(rr)
		if rr.Skipped() && e.OnSkip != nil {
			e.OnSkip(rr, row)
		}
	}

	f := res.Summary.Funnel
	logf("stage=reconcile rows=%d admitted=%d identified=%d valid_manager=%d joined=%d clients=%d accounts=%d transactions=%d duration=%s",
		f.Rows, f.Admitted, f.Identified, f.ValidManager, f.Joined,
		len(res.Clients), len(res.Accounts), len(res.Transactions), time.Since(start).Truncate(time.Millisecond))
	for _, rc := range res.Summary.SortedSkips() {
		logf("stage=reconcile skip reason=%s rows=%d", rc.Name, rc.Count)
	}
	return res, nil
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return e.Logger.Printf
}

// blockStatus works out which source-derived blocks have every column they
// need. Transactions follow accounts.
func blockStatus(m normalize.Mapping, idx *baseline.Index) map[Block]BlockStatus {
	var rosterMissing []normalize.Field
	for _, f := range idx.Stats().MissingColumns {
		for _, need := range rosterCols {
			if f == need {
				rosterMissing = append(rosterMissing, f)
			}
		}
	}
	needs := func(fs []normalize.Field) BlockStatus {
		miss := m.Missing(fs...)
		miss = append(miss, rosterMissing...)
		return BlockStatus{Missing: miss}
	}
	acct := needs(accountCols)
	return map[Block]BlockStatus{
		BlockProducts:     {Missing: m.Missing(normalize.SourceProduct)},
		BlockClients:      needs(clientCols),
		BlockAccounts:     acct,
		BlockTransactions: acct,
	}
}

// collectProducts returns distinct product codes over every source row, in
// first-seen order.
func collectProducts(src *dataset.Dataset, m normalize.Mapping) []domain.Product {
	col, ok := m.Column(normalize.SourceProduct)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []domain.Product
	for _, row := range src.Rows {
		code := strings.TrimSpace(row.Cell(col))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, domain.Product{Code: code, DisplayName: domain.ProductDisplayName(code)})
	}
	return out
}

// pass holds the dedup state of one Run.
type pass struct {
	e     *Engine
	m     normalize.Mapping
	idx   *baseline.Index
	valid Validator

	// now is called at most once, the first time a row needs the fallback
	// date; today caches the result.
	now      func() time.Time
	today    time.Time
	hasToday bool

	clientsOn, accountsOn bool
	hasProduct, hasDate   bool

	clients  map[string]struct{}
	accounts map[string]struct{}
	res      *Result
}

// row evaluates one source row. A panic while evaluating is converted into a
// SkipRowError result so the remaining rows still run.
func (p *pass) row(row dataset.Row) (rr RowResult) {
	rr.Line = row.Line
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%w: line %d: %v", ErrRowProcessing, row.Line, rec)
			p.e.logger()("stage=reconcile line=%d err=%v", row.Line, err)
			rr = RowResult{Line: row.Line, Reason: SkipRowError, Detail: err.Error()}
		}
	}()

	mgr, reason, detail := p.filter(row)
	if reason != "" {
		rr.Reason, rr.Detail = reason, detail
		return rr
	}
	p.extract(row, mgr, &rr)
	return rr
}

// filter applies stages 1-5 and returns the effective manager identifier.
func (p *pass) filter(row dataset.Row) (string, SkipReason, string) {
	fn := &p.res.Summary.Funnel

	raw := strings.TrimSpace(row.Cell(p.m.Index(normalize.SourceManager)))
	if raw == "" || raw == "-" {
		return "", SkipNoManager, ""
	}
	fn.Admitted++

	derived, ok := identifier.Extract(raw)
	if !ok {
		return "", SkipBadIdentifier, raw
	}
	fn.Identified++

	if !p.valid.Valid(derived) {
		return "", SkipUnknownManager, derived
	}
	fn.ValidManager++

	acct := normalize.CanonicalAccountNumber(row.Cell(p.m.Index(normalize.SourceAccount)))
	if acct == "" {
		return "", SkipNotInBaseline, "empty account number"
	}
	mapped, ok := p.idx.Lookup(acct)
	if !ok {
		return "", SkipNotInBaseline, acct
	}
	if mapped != derived {
		if p.e.Mismatch == RejectMismatch {
			return "", SkipIdentifierMismatch, fmt.Sprintf("source=%s baseline=%s", derived, mapped)
		}
		p.res.Summary.Warnings[WarnIdentifierMismatch]++
		if !p.valid.Valid(mapped) {
			return "", SkipUnknownManager, mapped
		}
	}
	fn.Joined++
	return mapped, "", ""
}

// extract applies stages 6-7 for a row that passed every filter. Entities
// and warnings are committed only after the whole row was evaluated, so a row
// that fails midway leaves no trace in the Result.
func (p *pass) extract(row dataset.Row, mgr string, rr *RowResult) {
	cell := func(f normalize.Field) string {
		return strings.TrimSpace(row.Cell(p.m.Index(f)))
	}
	cif := cell(normalize.SourceCIF)

	var (
		client *domain.Client
		acct   *domain.Account
		tx     *domain.Transaction
		warns  []Warning
	)

	if p.clientsOn {
		name := cell(normalize.SourceClientName)
		switch {
		case cif == "" || name == "":
			rr.EntitySkips = append(rr.EntitySkips, SkipMissingClientField)
		default:
			if _, dup := p.clients[cif]; dup {
				warns = append(warns, WarnDuplicateClient)
			} else {
				client = &domain.Client{CIF: cif, Name: name}
			}
			rr.Client = true
		}
	}

	if p.accountsOn {
		acct, tx = p.account(row, cell, cif, mgr, client != nil, rr, &warns)
	}

	if client != nil {
		p.clients[cif] = struct{}{}
		p.res.Clients = append(p.res.Clients, *client)
	}
	if acct != nil {
		p.accounts[acct.Number] = struct{}{}
		p.res.Accounts = append(p.res.Accounts, *acct)
		p.res.Transactions = append(p.res.Transactions, *tx)
	}
	for _, w := range warns {
		p.res.Summary.Warnings[w]++
	}
}

// account builds the account of a row and its transaction. It returns nils
// when the row yields no new account; the reason, if any, goes to rr.
// newClient reports that this row is about to add the client for cif.
func (p *pass) account(row dataset.Row, cell func(normalize.Field) string, cif, mgr string, newClient bool, rr *RowResult, warns *[]Warning) (*domain.Account, *domain.Transaction) {
	number := normalize.CanonicalAccountNumber(row.Cell(p.m.Index(normalize.SourceAccount)))
	product := cell(normalize.SourceProduct)
	switch {
	case cif == "":
		rr.EntitySkips = append(rr.EntitySkips, SkipMissingAcctField)
		return nil, nil
	case p.hasProduct && product == "":
		rr.EntitySkips = append(rr.EntitySkips, SkipMissingAcctField)
		return nil, nil
	}
	if p.clientsOn && !newClient {
		if _, ok := p.clients[cif]; !ok {
			rr.EntitySkips = append(rr.EntitySkips, SkipClientUnavailable)
			return nil, nil
		}
	}
	if _, dup := p.accounts[number]; dup {
		*warns = append(*warns, WarnDuplicateAccount)
		rr.Account = true
		return nil, nil
	}

	cur := p.balance(cell(normalize.SourceBalance), warns)
	avail := p.balance(cell(normalize.SourceAvailableBalance), warns)
	date := p.date(cell(normalize.SourceDate), warns)

	rr.Account = true
	acct := &domain.Account{
		Number:           number,
		ClientCIF:        cif,
		ManagerID:        mgr,
		ProductCode:      product,
		Currency:         cell(normalize.SourceCurrency),
		CurrentBalance:   cur,
		AvailableBalance: avail,
	}
	return acct, &domain.Transaction{AccountNumber: number, Balance: cur, Date: date}
}

// balance parses an amount; unparsable values become zero.
func (p *pass) balance(v string, warns *[]Warning) decimal.Decimal {
	d, err := normalize.CleanBalance(v)
	if err != nil {
		*warns = append(*warns, WarnBalanceDefaulted)
		return decimal.Zero
	}
	return d
}

// date parses a transaction date; missing or unparsable values become the
// run date.
func (p *pass) date(v string, warns *[]Warning) time.Time {
	if v != "" {
		if t, err := normalize.ParseDate(v); err == nil {
			return t
		}
	}
	if !p.hasToday {
		t := p.now()
		y, m, d := t.Date()
		p.today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		p.hasToday = true
	}
	if p.hasDate {
		*warns = append(*warns, WarnDateDefaulted)
	}
	return p.today
}

func (p *pass) count(rr RowResult) {
	if rr.Reason != "" {
		p.res.Summary.Skipped[rr.Reason]++
		return
	}
	for _, r := range rr.EntitySkips {
		p.res.Summary.Skipped[r]++
	}
}
