// Package domain defines the persisted data shapes for a single user's
// financial data. These are plain records; all state transitions live in
// the finance package.
package domain

import "time"

// TransactionKind distinguishes money in from money out. Amounts are always
// positive magnitudes; direction is encoded only here, never as a sign.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Transaction is one logged income or expense entry. Transactions are
// immutable once created; there is no update or delete operation for them.
type Transaction struct {
	ID          string          `json:"id" firestore:"id"`
	Kind        TransactionKind `json:"type" firestore:"type"`
	Amount      float64         `json:"amount" firestore:"amount"`
	Description string          `json:"description" firestore:"description"`
	Category    string          `json:"category" firestore:"category"`
	Date        string          `json:"date" firestore:"date"` // ISO 8601
}

// Bill is a recurring monthly obligation. PaidForMonths holds year-month
// tokens ("2024-05") for the months already marked paid; a token appears at
// most once.
type Bill struct {
	ID            string   `json:"id" firestore:"id"`
	Description   string   `json:"description" firestore:"description"`
	Amount        float64  `json:"amount" firestore:"amount"`
	DueDay        int      `json:"dueDate" firestore:"dueDate"` // day of month, 1-31
	PaidForMonths []string `json:"paidForMonths" firestore:"paidForMonths"`
}

// Paid reports whether the bill has been marked paid for the given
// year-month token.
func (b Bill) Paid(month string) bool {
	for _, m := range b.PaidForMonths {
		if m == month {
			return true
		}
	}
	return false
}

// Goal is a savings goal. CurrentAmount only grows, by contributions.
type Goal struct {
	ID            string  `json:"id" firestore:"id"`
	Name          string  `json:"name" firestore:"name"`
	TargetAmount  float64 `json:"targetAmount" firestore:"targetAmount"`
	CurrentAmount float64 `json:"currentAmount" firestore:"currentAmount"`
}

// ChecklistItem is a shopping-list entry, the only entity with full
// update and delete semantics.
type ChecklistItem struct {
	ID        string `json:"id" firestore:"id"`
	Text      string `json:"text" firestore:"text"`
	Completed bool   `json:"completed" firestore:"completed"`
}

// FinancialData is the aggregate root and the unit of persistence: one
// whole document per user or guest identity.
type FinancialData struct {
	Transactions []Transaction   `json:"transactions" firestore:"transactions"`
	Bills        []Bill          `json:"bills" firestore:"bills"`
	Goals        []Goal          `json:"goals" firestore:"goals"`
	Checklist    []ChecklistItem `json:"checklist" firestore:"checklist"`
	ShowChart    bool            `json:"showChart" firestore:"showChart"`
}

// Empty returns the initial aggregate: all collections empty, chart visible.
func Empty() FinancialData {
	return FinancialData{
		Transactions: []Transaction{},
		Bills:        []Bill{},
		Goals:        []Goal{},
		Checklist:    []ChecklistItem{},
		ShowChart:    true,
	}
}

// Clone returns a deep copy of the aggregate.
func (d FinancialData) Clone() FinancialData {
	out := FinancialData{
		Transactions: make([]Transaction, len(d.Transactions)),
		Bills:        make([]Bill, len(d.Bills)),
		Goals:        make([]Goal, len(d.Goals)),
		Checklist:    make([]ChecklistItem, len(d.Checklist)),
		ShowChart:    d.ShowChart,
	}
	copy(out.Transactions, d.Transactions)
	copy(out.Goals, d.Goals)
	copy(out.Checklist, d.Checklist)
	for i, b := range d.Bills {
		months := make([]string, len(b.PaidForMonths))
		copy(months, b.PaidForMonths)
		b.PaidForMonths = months
		out.Bills[i] = b
	}
	return out
}

// MonthToken formats t as a year-month token, e.g. "2024-05".
func MonthToken(t time.Time) string {
	return t.Format("2006-01")
}
