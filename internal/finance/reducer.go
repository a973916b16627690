package finance

import "github.com/dvloznov/finanai/internal/domain"

// Reduce is the deterministic, side-effect-free transition function over the
// aggregate. It never fails: unknown actions and not-found lookups return
// the input state unchanged. The input state is never mutated; every
// transition builds a new value.
func Reduce(state domain.FinancialData, action Action) domain.FinancialData {
	switch a := action.(type) {
	case SetState:
		return a.Data.Clone()

	case ResetState:
		return domain.Empty()

	case AddTransaction:
		next := state.Clone()
		next.Transactions = append([]domain.Transaction{a.Transaction}, next.Transactions...)
		return next

	case AddBill:
		next := state.Clone()
		bill := a.Bill
		if bill.PaidForMonths == nil {
			bill.PaidForMonths = []string{}
		}
		next.Bills = append(next.Bills, bill)
		return next

	case PayBill:
		next := state.Clone()
		for i, bill := range next.Bills {
			if bill.ID != a.BillID {
				continue
			}
			if bill.Paid(a.Month) {
				return state
			}
			next.Bills[i].PaidForMonths = append(bill.PaidForMonths, a.Month)
			return next
		}
		return state

	case AddGoal:
		next := state.Clone()
		next.Goals = append(next.Goals, a.Goal)
		return next

	case AddToGoal:
		next := state.Clone()
		for i, goal := range next.Goals {
			if goal.ID == a.GoalID {
				next.Goals[i].CurrentAmount = goal.CurrentAmount + a.Amount
				return next
			}
		}
		return state

	case AddChecklistItem:
		next := state.Clone()
		next.Checklist = append(next.Checklist, a.Item)
		return next

	case UpdateChecklistItem:
		next := state.Clone()
		for i, item := range next.Checklist {
			if item.ID == a.Item.ID {
				next.Checklist[i] = a.Item
				return next
			}
		}
		return state

	case DeleteChecklistItem:
		next := state.Clone()
		kept := next.Checklist[:0]
		for _, item := range next.Checklist {
			if item.ID != a.ID {
				kept = append(kept, item)
			}
		}
		next.Checklist = kept
		return next

	case ToggleChartVisibility:
		next := state.Clone()
		next.ShowChart = !next.ShowChart
		return next
	}

	return state
}
