package state

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinFarmInvestment is the smallest farm-project investment.
	MinFarmInvestment int64 = 10000
	// TreeAverageROI is the annual return recorded for tree investments.
	TreeAverageROI = 20
	// InvestmentTerm is the ledger entry duration.
	InvestmentTerm = 365 * 24 * time.Hour
)

// Credit tops up the wallet.
type Credit struct {
	Amount int64 `json:"amount"`
}

func (Credit) Kind() string { return "wallet.credit" }

func (in Credit) apply(t *tx) error {
	if in.Amount <= 0 {
		return invalid("amount")
	}
	if err := t.credit(in.Amount); err != nil {
		return err
	}
	t.emit("wallet.credited", map[string]any{"amount": in.Amount, "balance": t.s.Wallet})
	return nil
}

// Debit withdraws from the wallet. It never takes the balance below zero.
type Debit struct {
	Amount int64 `json:"amount"`
}

func (Debit) Kind() string { return "wallet.debit" }

func (in Debit) apply(t *tx) error {
	if in.Amount <= 0 {
		return invalid("amount")
	}
	if err := t.debit(in.Amount); err != nil {
		return err
	}
	t.emit("wallet.debited", map[string]any{"amount": in.Amount, "balance": t.s.Wallet})
	return nil
}

// credit adds amount unless the balance would overflow.
func (t *tx) credit(amount int64) error {
	if amount > math.MaxInt64-t.s.Wallet {
		return &Error{Kind: ErrValidationFailed, Fields: []string{"amount"}, Context: map[string]any{"amount": amount, "balance": t.s.Wallet}}
	}
	t.s.Wallet += amount
	return nil
}

func (t *tx) debit(amount int64) error {
	if amount > t.s.Wallet {
		return fail(ErrInsufficientFunds, map[string]any{"amount": amount, "balance": t.s.Wallet})
	}
	t.s.Wallet -= amount
	return nil
}

// InvestInProject buys into a farm project.
type InvestInProject struct {
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
}

func (InvestInProject) Kind() string { return "investment.farm_project" }

func (in InvestInProject) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	p, ok := t.env.Catalog.Project(in.ProjectID)
	if !ok {
		return fail(ErrNotFound, map[string]any{"project_id": in.ProjectID})
	}
	if in.Amount < MinFarmInvestment {
		return fail(ErrBelowMinimum, map[string]any{"amount": in.Amount, "minimum": MinFarmInvestment})
	}
	inv := Investment{
		Kind:        KindFarmProject,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Amount:      in.Amount,
		ROI:         p.ROI,
		Image:       p.Image,
	}
	if err := t.invest(&inv); err != nil {
		return err
	}
	t.push("Successfully invested " + FormatNaira(inv.Amount) + " in " + inv.ProjectName)
	return nil
}

// InvestInTree buys fractional tree ownership within the product's bounds.
type InvestInTree struct {
	TreeID string `json:"tree_id"`
	Amount int64  `json:"amount"`
}

func (InvestInTree) Kind() string { return "investment.tree" }

func (in InvestInTree) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	tree, ok := t.env.Catalog.Tree(in.TreeID)
	if !ok {
		return fail(ErrNotFound, map[string]any{"tree_id": in.TreeID})
	}
	bounds := map[string]any{"amount": in.Amount, "minimum": tree.MinInvestment, "maximum": tree.MaxInvestment}
	if in.Amount < tree.MinInvestment {
		return fail(ErrBelowMinimum, bounds)
	}
	if in.Amount > tree.MaxInvestment {
		return fail(ErrAboveMaximum, bounds)
	}
	inv := Investment{
		Kind:        KindTree,
		ProjectID:   tree.ID,
		ProjectName: tree.Name,
		Amount:      in.Amount,
		ROI:         TreeAverageROI,
		Image:       tree.Image,
	}
	if err := t.invest(&inv); err != nil {
		return err
	}
	t.push("Your investment in " + tree.Name + " has been confirmed")
	return nil
}

// invest debits the wallet once and appends inv to the ledger as active.
func (t *tx) invest(inv *Investment) error {
	if err := t.debit(inv.Amount); err != nil {
		return err
	}
	inv.ID = t.nextID("inv")
	inv.Status = InvestmentActive
	inv.StartDate = t.now()
	inv.EndDate = t.now().Add(InvestmentTerm)
	t.s.Investments = append(t.s.Investments, *inv)
	t.emit("investment.created", map[string]any{
		"investment_id": inv.ID,
		"kind":          string(inv.Kind),
		"project_id":    inv.ProjectID,
		"amount":        inv.Amount,
		"roi":           inv.ROI,
		"user_id":       t.userID(),
	})
	return nil
}

// MatureInvestment moves an active entry whose end date has passed to
// matured.
type MatureInvestment struct {
	ID string `json:"id"`
}

func (MatureInvestment) Kind() string { return "investment.mature" }

func (in MatureInvestment) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	i, err := t.investment(in.ID)
	if err != nil {
		return err
	}
	inv := &t.s.Investments[i]
	if inv.Status != InvestmentActive {
		return fail(ErrInvalidTransition, map[string]any{"id": inv.ID, "from": string(inv.Status), "to": string(InvestmentMatured)})
	}
	if t.now().Before(inv.EndDate) {
		return fail(ErrInvalidTransition, map[string]any{"id": inv.ID, "matures_at": inv.EndDate.Format(time.RFC3339)})
	}
	inv.Status = InvestmentMatured
	t.emit("investment.matured", map[string]any{"investment_id": inv.ID})
	t.push("Your investment in " + inv.ProjectName + " has matured")
	return nil
}

// WithdrawInvestment closes an active or matured entry and credits the
// wallet with the principal, plus the simple return when matured.
type WithdrawInvestment struct {
	ID string `json:"id"`
}

func (WithdrawInvestment) Kind() string { return "investment.withdraw" }

func (in WithdrawInvestment) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	i, err := t.investment(in.ID)
	if err != nil {
		return err
	}
	inv := &t.s.Investments[i]
	if inv.Status == InvestmentWithdrawn {
		return fail(ErrInvalidTransition, map[string]any{"id": inv.ID, "from": string(inv.Status), "to": string(InvestmentWithdrawn)})
	}
	payout := inv.Amount
	if inv.Status == InvestmentMatured {
		projected := Project(inv.Amount, inv.ROI, 1).Round(0)
		if projected.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return invalid("amount")
		}
		payout = projected.IntPart()
	}
	if err := t.credit(payout); err != nil {
		return err
	}
	inv.Status = InvestmentWithdrawn
	t.emit("investment.withdrawn", map[string]any{"investment_id": inv.ID, "payout": payout, "balance": t.s.Wallet})
	t.push("Withdrew " + FormatNaira(payout) + " from " + inv.ProjectName)
	return nil
}

func (t *tx) investment(id string) (int, error) {
	for i, inv := range t.s.Investments {
		if inv.ID == id {
			return i, nil
		}
	}
	return -1, fail(ErrNotFound, map[string]any{"investment_id": id})
}
