// Package emit renders reconciled entities as an ordered, commented SQL
// script.
//
// Foreign keys are written as correlated subqueries on the referenced
// entity's natural key, e.g. (SELECT id FROM clients WHERE cif = 'C1'),
// because surrogate ids only exist once the target database assigns them.
package emit

import (
	"fmt"
	"strings"

	"dmlgen/internal/domain"
	"dmlgen/internal/normalize"
	"dmlgen/internal/reconcile"
	"dmlgen/internal/storage"
)

// Header is the first line of every script.
const Header = "-- DML script generated by dmlgen --"

// Tables names the target tables. Zero fields take the defaults.
type Tables struct {
	Branches     string
	Managers     string
	Products     string
	Clients      string
	Accounts     string
	Transactions string
}

// DefaultTables is the schema the scripts were written for.
var DefaultTables = Tables{
	Branches:     "branches",
	Managers:     "universal_bankers",
	Products:     "account_products",
	Clients:      "clients",
	Accounts:     "accounts",
	Transactions: "account_transactions",
}

func (t Tables) withDefaults(schema string) Tables {
	pick := func(v, def string) string {
		if v == "" {
			v = def
		}
		if schema != "" && !strings.Contains(v, ".") {
			v = schema + "." + v
		}
		return v
	}
	return Tables{
		Branches:     pick(t.Branches, DefaultTables.Branches),
		Managers:     pick(t.Managers, DefaultTables.Managers),
		Products:     pick(t.Products, DefaultTables.Products),
		Clients:      pick(t.Clients, DefaultTables.Clients),
		Accounts:     pick(t.Accounts, DefaultTables.Accounts),
		Transactions: pick(t.Transactions, DefaultTables.Transactions),
	}
}

// Plan is everything that goes into one script.
type Plan struct {
	Managers []domain.Manager
	// ManagersMissing lists roster columns the managers block needed but
	// did not find; the block is then a placeholder.
	ManagersMissing []normalize.Field

	Result *reconcile.Result
}

// Block is one commented group of statements. A block with Skip set holds no
// statements and renders as a placeholder comment.
type Block struct {
	Title      string
	Table      string
	Statements []string
	Skip       string
}

// Emitter renders a Plan for one dialect.
type Emitter struct {
	Dialect storage.Dialect
	// Branch, when set, is inserted first and referenced by every manager.
	Branch *domain.Branch
	Tables Tables
	// Schema qualifies every table name that is not already dotted.
	Schema string
}

// Render returns the blocks in their fixed order: Branch, Universal Bankers,
// Account Products, Clients, Accounts, Account Transactions.
func (e *Emitter) Render(p Plan) []Block {
	r := renderer{d: e.Dialect, t: e.Tables.withDefaults(e.Schema), branch: e.Branch}
	res := p.Result
	if res == nil {
		res = &reconcile.Result{}
	}

	return []Block{
		r.branchBlock(),
		r.managerBlock(p.Managers, p.ManagersMissing),
		r.productBlock(res),
		r.clientBlock(res),
		r.accountBlock(res),
		r.transactionBlock(res),
	}
}

// Script renders blocks as one newline-terminated script.
func Script(blocks []Block) string {
	return strings.Join(Lines(blocks), "\n") + "\n"
}

// Lines flattens blocks into output lines, starting with Header.
func Lines(blocks []Block) []string {
	lines := []string{Header}
	for i, b := range blocks {
		lines = append(lines, "", fmt.Sprintf("-- Block %d: %s --", i+1, b.Title))
		switch {
		case b.Skip != "":
			lines = append(lines, "-- skipped: "+b.Skip)
		case len(b.Statements) == 0:
			lines = append(lines, "-- no rows")
		default:
			lines = append(lines, b.Statements...)
		}
	}
	return lines
}

// Count returns the number of statements across blocks.
func Count(blocks []Block) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Statements)
	}
	return n
}

type renderer struct {
	d      storage.Dialect
	t      Tables
	branch *domain.Branch
}

func (r renderer) str(v string) string { return r.d.Literal(normalize.CleanString(v)) }

// ref renders a natural-key lookup of the surrogate id.
func (r renderer) ref(table, keyCol, key string) string {
	return fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)", r.d.Ident("id"), r.d.Ident(table), r.d.Ident(keyCol), r.str(key))
}

func missingNote(fs []normalize.Field) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return "missing columns " + strings.Join(names, ", ")
}

func (r renderer) branchBlock() Block {
	b := Block{Title: "Branch", Table: r.t.Branches}
	if r.branch == nil || strings.TrimSpace(r.branch.Code) == "" {
		b.Skip = "no branch configured"
		return b
	}
	cols := []string{"code", "name"}
	vals := []string{r.str(r.branch.Code), r.str(r.branch.Name)}
	if r.branch.Address != "" {
		cols = append(cols, "address")
		vals = append(vals, r.str(r.branch.Address))
	}
	cols = append(cols, "created_at", "updated_at")
	vals = append(vals, r.d.Now(), r.d.Now())
	b.Statements = []string{r.d.Insert(storage.Insert{
		Table: r.t.Branches, Columns: cols, Values: vals,
		Key: []string{"code"}, KeyValues: []string{r.str(r.branch.Code)},
	})}
	return b
}

func (r renderer) managerBlock(ms []domain.Manager, missing []normalize.Field) Block {
	b := Block{Title: "Universal Bankers", Table: r.t.Managers}
	if len(missing) > 0 {
		b.Skip = missingNote(missing)
		return b
	}
	withBranch := r.branch != nil && strings.TrimSpace(r.branch.Code) != ""
	for _, m := range ms {
		cols := []string{"nip", "name"}
		vals := []string{r.str(m.Identifier), r.str(m.Name)}
		if withBranch {
			cols = append(cols, "branch_id")
			vals = append(vals, r.ref(r.t.Branches, "code", r.branch.Code))
		}
		cols = append(cols, "created_at", "updated_at")
		vals = append(vals, r.d.Now(), r.d.Now())
		b.Statements = append(b.Statements, r.d.Insert(storage.Insert{
			Table: r.t.Managers, Columns: cols, Values: vals,
			Key: []string{"nip"}, KeyValues: []string{r.str(m.Identifier)},
		}))
	}
	return b
}

func (r renderer) productBlock(res *reconcile.Result) Block {
	b := Block{Title: "Account Products", Table: r.t.Products}
	if st := res.Status(reconcile.BlockProducts); !st.Available() {
		b.Skip = missingNote(st.Missing)
		return b
	}
	for _, p := range res.Products {
		b.Statements = append(b.Statements, r.d.Insert(storage.Insert{
			Table:     r.t.Products,
			Columns:   []string{"code", "name", "created_at", "updated_at"},
			Values:    []string{r.str(p.Code), r.str(p.DisplayName), r.d.Now(), r.d.Now()},
			Key:       []string{"code"},
			KeyValues: []string{r.str(p.Code)},
		}))
	}
	return b
}

func (r renderer) clientBlock(res *reconcile.Result) Block {
	b := Block{Title: "Clients", Table: r.t.Clients}
	if st := res.Status(reconcile.BlockClients); !st.Available() {
		b.Skip = missingNote(st.Missing)
		return b
	}
	for _, c := range res.Clients {
		b.Statements = append(b.Statements, r.d.Insert(storage.Insert{
			Table:     r.t.Clients,
			Columns:   []string{"cif", "name", "status", "joined_at", "created_at", "updated_at"},
			Values:    []string{r.str(c.CIF), r.str(c.Name), r.str("active"), r.d.Now(), r.d.Now(), r.d.Now()},
			Key:       []string{"cif"},
			KeyValues: []string{r.str(c.CIF)},
		}))
	}
	return b
}

func (r renderer) accountBlock(res *reconcile.Result) Block {
	b := Block{Title: "Accounts", Table: r.t.Accounts}
	if st := res.Status(reconcile.BlockAccounts); !st.Available() {
		b.Skip = missingNote(st.Missing)
		return b
	}
	for _, a := range res.Accounts {
		product := "NULL"
		if a.ProductCode != "" {
			product = r.ref(r.t.Products, "code", a.ProductCode)
		}
		b.Statements = append(b.Statements, r.d.Insert(storage.Insert{
			Table: r.t.Accounts,
			Columns: []string{
				"client_id", "universal_banker_id", "account_product_id", "account_number",
				"current_balance", "available_balance", "currency", "status",
				"opened_at", "created_at", "updated_at",
			},
			Values: []string{
				r.ref(r.t.Clients, "cif", a.ClientCIF),
				r.ref(r.t.Managers, "nip", a.ManagerID),
				product,
				r.str(a.Number),
				a.CurrentBalance.String(),
				a.AvailableBalance.String(),
				r.str(a.Currency),
				r.str("active"),
				r.d.Now(), r.d.Now(), r.d.Now(),
			},
			Key:       []string{"account_number"},
			KeyValues: []string{r.str(a.Number)},
		}))
	}
	return b
}

func (r renderer) transactionBlock(res *reconcile.Result) Block {
	b := Block{Title: "Account Transactions", Table: r.t.Transactions}
	if st := res.Status(reconcile.BlockTransactions); !st.Available() {
		b.Skip = missingNote(st.Missing)
		return b
	}
	for _, tx := range res.Transactions {
		b.Statements = append(b.Statements, r.d.Insert(storage.Insert{
			Table:   r.t.Transactions,
			Columns: []string{"account_id", "balance", "transaction_date", "created_at", "updated_at"},
			Values: []string{
				r.ref(r.t.Accounts, "account_number", tx.AccountNumber),
				tx.Balance.String(),
				r.d.Date(tx.Date),
				r.d.Now(), r.d.Now(),
			},
		}))
	}
	return b
}
