// Package finance holds the state reducer core and the service that
// orchestrates it: a pure transition function over the financial aggregate,
// and a dependency-injected container that serializes dispatches and
// enforces the cross-entity accounting rules.
package finance

import (
	"time"

	"github.com/dvloznov/finanai/internal/domain"
	"github.com/google/uuid"
)

// Action is a request to transition the aggregate. Entity identifiers are
// generated when the action is constructed, so the caller holds the new
// entity (id included) before the reducer ever runs and Reduce itself stays
// deterministic.
type Action interface {
	isAction()
}

// SetState replaces the whole aggregate. Used only when loading from a
// backing store.
type SetState struct {
	Data domain.FinancialData
}

// ResetState replaces the aggregate with the empty aggregate.
type ResetState struct{}

// AddTransaction prepends a new transaction; new transactions sort first.
type AddTransaction struct {
	Transaction domain.Transaction
}

// AddBill appends a new bill with an empty paid-months set.
type AddBill struct {
	Bill domain.Bill
}

// PayBill marks the bill paid for the given year-month token. Paying an
// already-paid month is a no-op; an unknown bill is a no-op.
type PayBill struct {
	BillID string
	Month  string
}

// AddGoal appends a new goal with current amount zero.
type AddGoal struct {
	Goal domain.Goal
}

// AddToGoal increases the matched goal's current amount. There is no upper
// clamp; exceeding the target is allowed.
type AddToGoal struct {
	GoalID string
	Amount float64
}

// AddChecklistItem appends a new, uncompleted item.
type AddChecklistItem struct {
	Item domain.ChecklistItem
}

// UpdateChecklistItem replaces the item matching Item.ID wholesale.
type UpdateChecklistItem struct {
	Item domain.ChecklistItem
}

// DeleteChecklistItem removes the matching item.
type DeleteChecklistItem struct {
	ID string
}

// ToggleChartVisibility flips the chart display flag.
type ToggleChartVisibility struct{}

func (SetState) isAction()              {}
func (ResetState) isAction()            {}
func (AddTransaction) isAction()        {}
func (AddBill) isAction()               {}
func (PayBill) isAction()               {}
func (AddGoal) isAction()               {}
func (AddToGoal) isAction()             {}
func (AddChecklistItem) isAction()      {}
func (UpdateChecklistItem) isAction()   {}
func (DeleteChecklistItem) isAction()   {}
func (ToggleChartVisibility) isAction() {}

// TransactionInput carries the user-supplied fields of a new transaction.
type TransactionInput struct {
	Kind        domain.TransactionKind
	Amount      float64
	Description string
	Category    string
	Date        string
}

// NewTransaction builds a transaction with a fresh identifier. An empty
// date defaults to the current instant in ISO form.
func NewTransaction(in TransactionInput) domain.Transaction {
	date := in.Date
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}
	return domain.Transaction{
		ID:          uuid.NewString(),
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Date:        date,
	}
}

// BillInput carries the user-supplied fields of a new bill.
type BillInput struct {
	Description string
	Amount      float64
	DueDay      int
}

// NewBill builds a bill with a fresh identifier and no paid months.
func NewBill(in BillInput) domain.Bill {
	return domain.Bill{
		ID:            uuid.NewString(),
		Description:   in.Description,
		Amount:        in.Amount,
		DueDay:        in.DueDay,
		PaidForMonths: []string{},
	}
}

// GoalInput carries the user-supplied fields of a new goal.
type GoalInput struct {
	Name         string
	TargetAmount float64
}

// NewGoal builds a goal with a fresh identifier and current amount zero.
func NewGoal(in GoalInput) domain.Goal {
	return domain.Goal{
		ID:           uuid.NewString(),
		Name:         in.Name,
		TargetAmount: in.TargetAmount,
	}
}

// NewChecklistItem builds an uncompleted item with a fresh identifier.
func NewChecklistItem(text string) domain.ChecklistItem {
	return domain.ChecklistItem{
		ID:   uuid.NewString(),
		Text: text,
	}
}
