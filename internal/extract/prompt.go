package extract

import (
	"encoding/json"
	"strings"
	"time"
)

// buildPrompt assembles the extraction instructions. The user text is often
// Portuguese and may describe several entries in one message.
func buildPrompt(text string, now time.Time) string {
	basePrompt :=
		"You are a financial assistant. Analyze the user's text and extract all " +
			"one-time transactions and/or recurring monthly bills. The text is usually " +
			"in Portuguese and may contain multiple entries separated by commas, " +
			"newlines, or conjunctions like 'e'.\n\n" +
			"Output STRICT JSON only (no comments, no trailing commas, no extra text): " +
			"a JSON object with a single \"entries\" array.\n\n" +
			"Each entry must have these fields:\n" +
			"- \"type\": \"transaction\", \"bill\", or \"invalid\"\n" +
			"- \"amount\": number, optional (required for transactions; for bills only if mentioned)\n" +
			"- \"date\": string \"YYYY-MM-DD\", transactions only\n" +
			"- \"description\": string\n" +
			"- \"category\": string, transactions only (e.g. food, salary, bills)\n" +
			"- \"transactionType\": \"income\" or \"expense\", transactions only\n" +
			"- \"dueDate\": number 1-31, bills only (day of the month it is due)\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- A recurring payment (\"conta de luz todo dia 10\", \"aluguel vence dia 5\") is a \"bill\".\n" +
			"- Anything else that describes money moving is a \"transaction\"; classify it as income or expense.\n" +
			"- If no date is mentioned for a transaction, use today: " + now.Format("2006-01-02") + ".\n" +
			"- If a phrase is not a valid transaction or bill (a greeting, random words), mark it \"invalid\".\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n"

	return basePrompt + rulesPrompt + "\nAnalyze the following text:\n" + text + "\n"
}

// cleanModelJSON strips Markdown fences and stray text when the model
// ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// decodeEntries accepts both the documented {"entries":[...]} object and a
// bare top-level array, which some model revisions return.
func decodeEntries(clean string) ([]Entry, error) {
	var wrapped struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapped); err == nil && wrapped.Entries != nil {
		return wrapped.Entries, nil
	}

	var bare []Entry
	if err := json.Unmarshal([]byte(clean), &bare); err != nil {
		return nil, err
	}
	return bare, nil
}
