package finance

import (
	"reflect"
	"testing"

	"github.com/dvloznov/finanai/internal/domain"
)

func TestReduce_SetStateRoundTrip(t *testing.T) {
	doc := domain.Empty()
	doc.Transactions = []domain.Transaction{{ID: "t1", Kind: domain.KindIncome, Amount: 10, Date: "2024-01-01"}}
	doc.ShowChart = false

	got := Reduce(domain.Empty(), SetState{Data: doc})

	if !reflect.DeepEqual(got, doc) {
		t.Errorf("SetState mismatch:\n got %+v\nwant %+v", got, doc)
	}
}

func TestReduce_ResetState(t *testing.T) {
	state := domain.Empty()
	state.Transactions = []domain.Transaction{{ID: "t1"}}
	state.Bills = []domain.Bill{{ID: "b1"}}
	state.Goals = []domain.Goal{{ID: "g1"}}
	state.Checklist = []domain.ChecklistItem{{ID: "c1"}}
	state.ShowChart = false

	got := Reduce(state, ResetState{})

	if !reflect.DeepEqual(got, domain.Empty()) {
		t.Errorf("Expected empty aggregate after reset, got %+v", got)
	}
}

func TestReduce_AddTransactionPrepends(t *testing.T) {
	state := Reduce(domain.Empty(), AddTransaction{Transaction: domain.Transaction{ID: "t1"}})
	state = Reduce(state, AddTransaction{Transaction: domain.Transaction{ID: "t2"}})

	if state.Transactions[0].ID != "t2" || state.Transactions[1].ID != "t1" {
		t.Errorf("Expected newest transaction first, got %+v", state.Transactions)
	}
}

func TestReduce_PayBillIdempotent(t *testing.T) {
	state := Reduce(domain.Empty(), AddBill{Bill: domain.Bill{ID: "b1", Description: "Rent", Amount: 1200, DueDay: 5}})

	if len(state.Bills[0].PaidForMonths) != 0 {
		t.Fatalf("Expected empty paid-months on new bill, got %v", state.Bills[0].PaidForMonths)
	}

	once := Reduce(state, PayBill{BillID: "b1", Month: "2024-05"})
	twice := Reduce(once, PayBill{BillID: "b1", Month: "2024-05"})

	want := []string{"2024-05"}
	if !reflect.DeepEqual(once.Bills[0].PaidForMonths, want) {
		t.Errorf("Expected %v after one payment, got %v", want, once.Bills[0].PaidForMonths)
	}
	if !reflect.DeepEqual(twice, once) {
		t.Errorf("Expected second payment to be a no-op, got %+v", twice.Bills[0].PaidForMonths)
	}
}

func TestReduce_PayBillUnknownBill(t *testing.T) {
	state := domain.Empty()
	got := Reduce(state, PayBill{BillID: "missing", Month: "2024-05"})
	if !reflect.DeepEqual(got, state) {
		t.Errorf("Expected unchanged state for unknown bill, got %+v", got)
	}
}

func TestReduce_AddToGoalOnlyTouchesMatchedGoal(t *testing.T) {
	state := domain.Empty()
	state.Goals = []domain.Goal{
		{ID: "g1", Name: "Trip", TargetAmount: 1000},
		{ID: "g2", Name: "Car", TargetAmount: 5000, CurrentAmount: 100},
	}

	got := Reduce(state, AddToGoal{GoalID: "g1", Amount: 300})

	if got.Goals[0].CurrentAmount != 300 {
		t.Errorf("Expected g1 current 300, got %v", got.Goals[0].CurrentAmount)
	}
	if got.Goals[1].CurrentAmount != 100 {
		t.Errorf("Expected g2 untouched, got %v", got.Goals[1].CurrentAmount)
	}
}

func TestReduce_AddToGoalAllowsExceedingTarget(t *testing.T) {
	state := domain.Empty()
	state.Goals = []domain.Goal{{ID: "g1", TargetAmount: 100, CurrentAmount: 90}}

	got := Reduce(state, AddToGoal{GoalID: "g1", Amount: 50})

	if got.Goals[0].CurrentAmount != 140 {
		t.Errorf("Expected no clamp at target, got %v", got.Goals[0].CurrentAmount)
	}
}

func TestReduce_ChecklistLifecycle(t *testing.T) {
	state := Reduce(domain.Empty(), AddChecklistItem{Item: domain.ChecklistItem{ID: "c1", Text: "Milk"}})

	if state.Checklist[0].Completed {
		t.Error("Expected new item uncompleted")
	}

	state = Reduce(state, UpdateChecklistItem{Item: domain.ChecklistItem{ID: "c1", Text: "Oat milk", Completed: true}})
	if state.Checklist[0].Text != "Oat milk" || !state.Checklist[0].Completed {
		t.Errorf("Expected wholesale replace, got %+v", state.Checklist[0])
	}

	state = Reduce(state, DeleteChecklistItem{ID: "c1"})
	if len(state.Checklist) != 0 {
		t.Errorf("Expected item deleted, got %+v", state.Checklist)
	}
}

func TestReduce_ToggleChartVisibility(t *testing.T) {
	state := domain.Empty()

	state = Reduce(state, ToggleChartVisibility{})
	if state.ShowChart {
		t.Error("Expected chart hidden after first toggle")
	}
	state = Reduce(state, ToggleChartVisibility{})
	if !state.ShowChart {
		t.Error("Expected chart visible after second toggle")
	}
}

func TestReduce_Deterministic(t *testing.T) {
	state := domain.Empty()
	state.Bills = []domain.Bill{{ID: "b1", Amount: 50}}

	actions := []Action{
		AddTransaction{Transaction: domain.Transaction{ID: "t1", Amount: 10}},
		PayBill{BillID: "b1", Month: "2024-06"},
		AddChecklistItem{Item: domain.ChecklistItem{ID: "c1", Text: "x"}},
		ToggleChartVisibility{},
	}

	run := func() domain.FinancialData {
		s := state.Clone()
		for _, a := range actions {
			s = Reduce(s, a)
		}
		return s
	}

	if first, second := run(), run(); !reflect.DeepEqual(first, second) {
		t.Errorf("Same action sequence produced different states:\n%+v\n%+v", first, second)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := domain.Empty()
	state.Bills = []domain.Bill{{ID: "b1", PaidForMonths: []string{}}}
	before := state.Clone()

	_ = Reduce(state, PayBill{BillID: "b1", Month: "2024-05"})
	_ = Reduce(state, AddTransaction{Transaction: domain.Transaction{ID: "t1"}})

	if !reflect.DeepEqual(state, before) {
		t.Errorf("Reduce mutated its input: %+v", state)
	}
}

func TestReduce_UnknownActionIsNoOp(t *testing.T) {
	state := domain.Empty()
	state.Transactions = []domain.Transaction{{ID: "t1"}}

	got := Reduce(state, unknownAction{})

	if !reflect.DeepEqual(got, state) {
		t.Errorf("Expected unknown action to return input unchanged, got %+v", got)
	}
}

type unknownAction struct{}

func (unknownAction) isAction() {}
