package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestEmpty(t *testing.T) {
	data := Empty()

	if len(data.Transactions) != 0 || len(data.Bills) != 0 || len(data.Goals) != 0 || len(data.Checklist) != 0 {
		t.Errorf("Expected all collections empty, got %+v", data)
	}
	if !data.ShowChart {
		t.Error("Expected chart visible by default")
	}
}

func TestNormalize_NilDocument(t *testing.T) {
	data := Normalize(nil)
	if !reflect.DeepEqual(data, Empty()) {
		t.Errorf("Expected empty aggregate for nil document, got %+v", data)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	raw := map[string]interface{}{
		"transactions": []interface{}{
			map[string]interface{}{
				"id":          "t1",
				"type":        "expense",
				"amount":      42.5,
				"description": "Mercado",
				"category":    "food",
				"date":        "2024-05-01",
			},
		},
		// bills, goals, checklist, showChart all absent
	}

	data := Normalize(raw)

	if len(data.Transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(data.Transactions))
	}
	if data.Transactions[0].Amount != 42.5 || data.Transactions[0].Kind != KindExpense {
		t.Errorf("Transaction not normalized correctly: %+v", data.Transactions[0])
	}
	if data.Bills == nil || len(data.Bills) != 0 {
		t.Errorf("Expected empty bills slice, got %v", data.Bills)
	}
	if !data.ShowChart {
		t.Error("Expected missing showChart to default to true")
	}
}

func TestNormalize_LegacyChecklistItemsKey(t *testing.T) {
	raw := map[string]interface{}{
		"checklistItems": []interface{}{
			map[string]interface{}{"id": "c1", "text": "Leite", "completed": true},
		},
	}

	data := Normalize(raw)

	if len(data.Checklist) != 1 {
		t.Fatalf("Expected legacy checklistItems to be read, got %d items", len(data.Checklist))
	}
	if data.Checklist[0].Text != "Leite" || !data.Checklist[0].Completed {
		t.Errorf("Unexpected checklist item: %+v", data.Checklist[0])
	}
}

func TestNormalize_LegacyPaymentsMap(t *testing.T) {
	raw := map[string]interface{}{
		"bills": []interface{}{
			map[string]interface{}{
				"id":          "b1",
				"description": "Aluguel",
				"amount":      1200.0,
				"dueDate":     5.0,
				"payments": map[string]interface{}{
					"2024-03": true,
					"2024-04": false,
					"2024-02": true,
				},
			},
		},
	}

	data := Normalize(raw)

	if len(data.Bills) != 1 {
		t.Fatalf("Expected 1 bill, got %d", len(data.Bills))
	}
	got := data.Bills[0].PaidForMonths
	want := []string{"2024-02", "2024-03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected paid months %v, got %v", want, got)
	}
	if data.Bills[0].DueDay != 5 {
		t.Errorf("Expected due day 5, got %d", data.Bills[0].DueDay)
	}
}

func TestNormalize_DeduplicatesPaidMonths(t *testing.T) {
	raw := map[string]interface{}{
		"bills": []interface{}{
			map[string]interface{}{
				"id":            "b1",
				"paidForMonths": []interface{}{"2024-05", "2024-05", "2024-06"},
			},
		},
	}

	data := Normalize(raw)

	want := []string{"2024-05", "2024-06"}
	if !reflect.DeepEqual(data.Bills[0].PaidForMonths, want) {
		t.Errorf("Expected deduplicated months %v, got %v", want, data.Bills[0].PaidForMonths)
	}
}

func TestNormalize_FirestoreIntegerAmounts(t *testing.T) {
	raw := map[string]interface{}{
		"goals": []interface{}{
			map[string]interface{}{
				"id":            "g1",
				"name":          "Viagem",
				"targetAmount":  int64(1000),
				"currentAmount": int64(300),
			},
		},
	}

	data := Normalize(raw)

	if data.Goals[0].TargetAmount != 1000 || data.Goals[0].CurrentAmount != 300 {
		t.Errorf("Expected int64 amounts converted, got %+v", data.Goals[0])
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	original := Empty()
	original.Transactions = []Transaction{{ID: "t1", Kind: KindIncome, Amount: 10, Description: "x", Category: "y", Date: "2024-01-02"}}
	original.Bills = []Bill{{ID: "b1", Description: "Luz", Amount: 99.9, DueDay: 10, PaidForMonths: []string{"2024-01"}}}
	original.Goals = []Goal{{ID: "g1", Name: "Trip", TargetAmount: 1000, CurrentAmount: 250}}
	original.Checklist = []ChecklistItem{{ID: "c1", Text: "Milk", Completed: false}}
	original.ShowChart = false

	got := Normalize(AsDocument(original))

	if !reflect.DeepEqual(got, original) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestClone_Independence(t *testing.T) {
	data := Empty()
	data.Bills = []Bill{{ID: "b1", PaidForMonths: []string{"2024-01"}}}

	clone := data.Clone()
	clone.Bills[0].PaidForMonths = append(clone.Bills[0].PaidForMonths, "2024-02")
	clone.Bills[0].Description = "changed"

	if len(data.Bills[0].PaidForMonths) != 1 {
		t.Error("Clone shares paid-months slice with original")
	}
	if data.Bills[0].Description == "changed" {
		t.Error("Clone shares bill struct with original")
	}
}

func TestBillPaid(t *testing.T) {
	b := Bill{PaidForMonths: []string{"2024-03", "2024-04"}}
	if !b.Paid("2024-03") {
		t.Error("Expected 2024-03 to be paid")
	}
	if b.Paid("2024-05") {
		t.Error("Expected 2024-05 to be unpaid")
	}
}

func TestMonthToken(t *testing.T) {
	ts := time.Date(2024, time.May, 7, 12, 0, 0, 0, time.UTC)
	if got := MonthToken(ts); got != "2024-05" {
		t.Errorf("Expected 2024-05, got %s", got)
	}
}
