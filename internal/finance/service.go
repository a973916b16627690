package finance

import (
	"errors"
	"reflect"
	"sync"

	"github.com/dvloznov/finanai/internal/domain"
)

// Categories assigned to the companion expense transactions recorded for
// bill payments and goal contributions.
const (
	CategoryBillPayment      = "Contas"
	CategoryGoalContribution = "Metas"
)

var (
	ErrBillNotFound = errors.New("bill not found")
	ErrGoalNotFound = errors.New("goal not found")
)

// Service is the state container around the reducer. It owns the single
// in-memory aggregate for one identity, serializes dispatches, and enforces
// the cross-entity rule that marking a bill paid or contributing to a goal
// records exactly one companion expense transaction.
//
// A Service is explicitly constructed at session start and torn down at
// logout; nothing about it is global.
type Service struct {
	mu       sync.Mutex
	state    domain.FinancialData
	onChange func(domain.FinancialData)
	now      func() string
}

// NewService returns a container holding the empty aggregate.
func NewService() *Service {
	return &Service{state: domain.Empty()}
}

// OnChange registers the single listener invoked after every dispatch that
// produced a different state. The listener runs with the container lock
// held and must not call back into the Service. Re-applying an identical
// state, such as the echo of our own remote write, does not notify, which
// is what makes self-notification a no-op in effect.
func (s *Service) OnChange(fn func(domain.FinancialData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State returns a deep copy of the current aggregate.
func (s *Service) State() domain.FinancialData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies one action through the reducer.
func (s *Service) Dispatch(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(action)
}

// apply runs one reducer step under the lock already held by the caller.
func (s *Service) apply(action Action) {
	next := Reduce(s.state, action)
	if reflect.DeepEqual(next, s.state) {
		return
	}
	s.state = next
	if s.onChange != nil {
		s.onChange(next.Clone())
	}
}

// AddTransaction creates and records a transaction, returning it with its
// generated identifier.
func (s *Service) AddTransaction(in TransactionInput) domain.Transaction {
	tx := NewTransaction(in)
	s.Dispatch(AddTransaction{Transaction: tx})
	return tx
}

// AddBill creates and records a bill.
func (s *Service) AddBill(in BillInput) domain.Bill {
	bill := NewBill(in)
	s.Dispatch(AddBill{Bill: bill})
	return bill
}

// PayBill marks the bill paid for the given year-month token and records
// the companion expense transaction, dated at the moment of payment, for
// the bill's amount. Paying an already-paid month changes nothing and
// returns no transaction; the lock makes two rapid calls for the same
// bill and month produce exactly one.
func (s *Service) PayBill(billID, month string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bill *domain.Bill
	for i := range s.state.Bills {
		if s.state.Bills[i].ID == billID {
			bill = &s.state.Bills[i]
			break
		}
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}
	if bill.Paid(month) {
		return nil, nil
	}

	tx := NewTransaction(TransactionInput{
		Kind:        domain.KindExpense,
		Amount:      bill.Amount,
		Description: "Pagamento: " + bill.Description,
		Category:    CategoryBillPayment,
	})
	s.apply(AddTransaction{Transaction: tx})
	s.apply(PayBill{BillID: billID, Month: month})
	return &tx, nil
}

// AddGoal creates and records a goal.
func (s *Service) AddGoal(in GoalInput) domain.Goal {
	goal := NewGoal(in)
	s.Dispatch(AddGoal{Goal: goal})
	return goal
}

// Contribute increases the goal's current amount by exactly amount and
// records the companion expense transaction for the contributed amount.
func (s *Service) Contribute(goalID string, amount float64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var goal *domain.Goal
	for i := range s.state.Goals {
		if s.state.Goals[i].ID == goalID {
			goal = &s.state.Goals[i]
			break
		}
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}

	tx := NewTransaction(TransactionInput{
		Kind:        domain.KindExpense,
		Amount:      amount,
		Description: "Contribuição para meta: " + goal.Name,
		Category:    CategoryGoalContribution,
	})
	s.apply(AddTransaction{Transaction: tx})
	s.apply(AddToGoal{GoalID: goalID, Amount: amount})
	return &tx, nil
}

// AddChecklistItem creates and records a checklist item.
func (s *Service) AddChecklistItem(text string) domain.ChecklistItem {
	item := NewChecklistItem(text)
	s.Dispatch(AddChecklistItem{Item: item})
	return item
}

// UpdateChecklistItem replaces the stored item matching item.ID.
func (s *Service) UpdateChecklistItem(item domain.ChecklistItem) {
	s.Dispatch(UpdateChecklistItem{Item: item})
}

// DeleteChecklistItem removes the item with the given id.
func (s *Service) DeleteChecklistItem(id string) {
	s.Dispatch(DeleteChecklistItem{ID: id})
}

// ToggleChart flips the chart display preference.
func (s *Service) ToggleChart() {
	s.Dispatch(ToggleChartVisibility{})
}

// Reset replaces the aggregate with the empty aggregate.
func (s *Service) Reset() {
	s.Dispatch(ResetState{})
}
