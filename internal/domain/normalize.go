package domain

import (
	"encoding/json"
	"sort"
)

// Normalize converts a raw persisted document into the canonical aggregate
// shape, defaulting every absent field so the app tolerates documents
// written by older revisions: missing collections become empty, a missing
// chart flag becomes true, the legacy "checklistItems" key is read as
// "checklist", and the legacy "payments" map (month -> bool) is rewritten
// as the paidForMonths token list. Only the canonical shape is ever
// written back.
func Normalize(raw map[string]interface{}) FinancialData {
	data := Empty()
	if raw == nil {
		return data
	}

	if v, ok := raw["transactions"].([]interface{}); ok {
		data.Transactions = normalizeTransactions(v)
	}
	if v, ok := raw["bills"].([]interface{}); ok {
		data.Bills = normalizeBills(v)
	}
	if v, ok := raw["goals"].([]interface{}); ok {
		data.Goals = normalizeGoals(v)
	}
	if v, ok := raw["checklist"].([]interface{}); ok {
		data.Checklist = normalizeChecklist(v)
	} else if v, ok := raw["checklistItems"].([]interface{}); ok {
		data.Checklist = normalizeChecklist(v)
	}
	if v, ok := raw["showChart"].(bool); ok {
		data.ShowChart = v
	}
	return data
}

// AsDocument renders the aggregate as a generic document for merge writes.
func AsDocument(d FinancialData) map[string]interface{} {
	b, err := json.Marshal(d)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func normalizeTransactions(items []interface{}) []Transaction {
	out := make([]Transaction, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, Transaction{
			ID:          asString(m["id"]),
			Kind:        TransactionKind(asString(m["type"])),
			Amount:      asFloat(m["amount"]),
			Description: asString(m["description"]),
			Category:    asString(m["category"]),
			Date:        asString(m["date"]),
		})
	}
	return out
}

func normalizeBills(items []interface{}) []Bill {
	out := make([]Bill, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		b := Bill{
			ID:            asString(m["id"]),
			Description:   asString(m["description"]),
			Amount:        asFloat(m["amount"]),
			DueDay:        asInt(m["dueDate"]),
			PaidForMonths: []string{},
		}
		if months, ok := m["paidForMonths"].([]interface{}); ok {
			for _, mo := range months {
				token := asString(mo)
				if token != "" && !b.Paid(token) {
					b.PaidForMonths = append(b.PaidForMonths, token)
				}
			}
		} else if payments, ok := m["payments"].(map[string]interface{}); ok {
			// Legacy representation: month -> paid flag.
			for token, paid := range payments {
				if flag, ok := paid.(bool); ok && flag {
					b.PaidForMonths = append(b.PaidForMonths, token)
				}
			}
			sort.Strings(b.PaidForMonths)
		}
		out = append(out, b)
	}
	return out
}

func normalizeGoals(items []interface{}) []Goal {
	out := make([]Goal, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, Goal{
			ID:            asString(m["id"]),
			Name:          asString(m["name"]),
			TargetAmount:  asFloat(m["targetAmount"]),
			CurrentAmount: asFloat(m["currentAmount"]),
		})
	}
	return out
}

func normalizeChecklist(items []interface{}) []ChecklistItem {
	out := make([]ChecklistItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		completed, _ := m["completed"].(bool)
		out = append(out, ChecklistItem{
			ID:        asString(m["id"]),
			Text:      asString(m["text"]),
			Completed: completed,
		})
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asFloat accepts the numeric encodings seen across backing stores:
// JSON decodes numbers as float64, Firestore returns int64 for whole values.
func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func asInt(v interface{}) int {
	return int(asFloat(v))
}
