package finance

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/dvloznov/finanai/internal/domain"
)

func TestService_PayBillScenario(t *testing.T) {
	svc := NewService()

	bill := svc.AddBill(BillInput{Description: "Rent", Amount: 1200, DueDay: 5})
	if bill.ID == "" {
		t.Fatal("Expected generated bill id")
	}
	if got := svc.State().Bills[0].PaidForMonths; len(got) != 0 {
		t.Fatalf("Expected empty paid-months, got %v", got)
	}

	tx, err := svc.PayBill(bill.ID, "2024-05")
	if err != nil {
		t.Fatalf("PayBill failed: %v", err)
	}
	if tx == nil {
		t.Fatal("Expected a companion transaction")
	}

	state := svc.State()
	if want := []string{"2024-05"}; !reflect.DeepEqual(state.Bills[0].PaidForMonths, want) {
		t.Errorf("Expected paid months %v, got %v", want, state.Bills[0].PaidForMonths)
	}
	if len(state.Transactions) != 1 {
		t.Fatalf("Expected exactly one transaction, got %d", len(state.Transactions))
	}
	got := state.Transactions[0]
	if got.Kind != domain.KindExpense || got.Amount != 1200 || got.Category != CategoryBillPayment {
		t.Errorf("Unexpected companion transaction: %+v", got)
	}
	if got.Date == "" {
		t.Error("Expected companion transaction to carry a payment date")
	}
}

func TestService_PayBillTwiceProducesOneTransaction(t *testing.T) {
	svc := NewService()
	bill := svc.AddBill(BillInput{Description: "Luz", Amount: 99.9, DueDay: 10})

	first, err := svc.PayBill(bill.ID, "2024-05")
	if err != nil || first == nil {
		t.Fatalf("First payment failed: tx=%v err=%v", first, err)
	}
	second, err := svc.PayBill(bill.ID, "2024-05")
	if err != nil {
		t.Fatalf("Second payment errored: %v", err)
	}
	if second != nil {
		t.Error("Expected no transaction for an already-paid month")
	}

	state := svc.State()
	if len(state.Transactions) != 1 {
		t.Errorf("Expected one transaction, got %d", len(state.Transactions))
	}
	if len(state.Bills[0].PaidForMonths) != 1 {
		t.Errorf("Expected one paid month, got %v", state.Bills[0].PaidForMonths)
	}
}

func TestService_ConcurrentPayBillSameMonth(t *testing.T) {
	svc := NewService()
	bill := svc.AddBill(BillInput{Description: "Internet", Amount: 89.9, DueDay: 15})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.PayBill(bill.ID, "2024-07")
		}()
	}
	wg.Wait()

	state := svc.State()
	if len(state.Transactions) != 1 {
		t.Errorf("Expected exactly one expense from concurrent payments, got %d", len(state.Transactions))
	}
	if want := []string{"2024-07"}; !reflect.DeepEqual(state.Bills[0].PaidForMonths, want) {
		t.Errorf("Expected paid months %v, got %v", want, state.Bills[0].PaidForMonths)
	}
}

func TestService_PayBillNotFound(t *testing.T) {
	svc := NewService()
	if _, err := svc.PayBill("missing", "2024-05"); !errors.Is(err, ErrBillNotFound) {
		t.Errorf("Expected ErrBillNotFound, got %v", err)
	}
}

func TestService_GoalContributionScenario(t *testing.T) {
	svc := NewService()

	goal := svc.AddGoal(GoalInput{Name: "Trip", TargetAmount: 1000})
	if goal.CurrentAmount != 0 {
		t.Fatalf("Expected current amount 0, got %v", goal.CurrentAmount)
	}

	tx, err := svc.Contribute(goal.ID, 300)
	if err != nil {
		t.Fatalf("Contribute failed: %v", err)
	}

	state := svc.State()
	if state.Goals[0].CurrentAmount != 300 {
		t.Errorf("Expected current amount 300, got %v", state.Goals[0].CurrentAmount)
	}
	if len(state.Transactions) != 1 {
		t.Fatalf("Expected exactly one transaction, got %d", len(state.Transactions))
	}
	if tx.Kind != domain.KindExpense || tx.Amount != 300 || tx.Category != CategoryGoalContribution {
		t.Errorf("Unexpected companion transaction: %+v", tx)
	}
}

func TestService_ContributeGoalNotFound(t *testing.T) {
	svc := NewService()
	if _, err := svc.Contribute("missing", 10); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("Expected ErrGoalNotFound, got %v", err)
	}
}

func TestService_ResetYieldsEmptyAggregate(t *testing.T) {
	svc := NewService()
	svc.AddTransaction(TransactionInput{Kind: domain.KindIncome, Amount: 5})
	svc.AddChecklistItem("Milk")
	svc.ToggleChart()

	svc.Reset()

	if !reflect.DeepEqual(svc.State(), domain.Empty()) {
		t.Errorf("Expected empty aggregate after reset, got %+v", svc.State())
	}
}

func TestService_OnChangeSkipsIdenticalState(t *testing.T) {
	svc := NewService()
	var changes int
	svc.OnChange(func(domain.FinancialData) { changes++ })

	doc := domain.Empty()
	doc.Checklist = []domain.ChecklistItem{{ID: "c1", Text: "Milk"}}

	svc.Dispatch(SetState{Data: doc})
	if changes != 1 {
		t.Fatalf("Expected one change notification, got %d", changes)
	}

	// The echo of our own write carries an identical document.
	svc.Dispatch(SetState{Data: doc})
	if changes != 1 {
		t.Errorf("Expected identical SetState to not notify, got %d notifications", changes)
	}
}

func TestService_AddTransactionReturnsGeneratedID(t *testing.T) {
	svc := NewService()
	tx := svc.AddTransaction(TransactionInput{Kind: domain.KindExpense, Amount: 12.5, Description: "Café"})

	if tx.ID == "" {
		t.Fatal("Expected generated transaction id")
	}
	if svc.State().Transactions[0].ID != tx.ID {
		t.Error("Expected returned transaction to match stored state")
	}
	if tx.Date == "" {
		t.Error("Expected empty date to default to now")
	}
}
