// Package extract turns free-form text into structured transaction or bill
// candidates using Gemini. The model is an opaque collaborator: it returns
// entries, and everything it could not understand is marked invalid and
// discarded before any state change.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finanai/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for extraction.
const DefaultModelName = "gemini-2.5-flash"

// Kind classifies one extracted entry.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindBill        Kind = "bill"
	KindInvalid     Kind = "invalid"
)

// Entry is one structured candidate extracted from the text. Amount is
// optional for bills; Date, Category and Direction apply to transactions
// only; DueDay applies to bills only.
type Entry struct {
	Kind        Kind                   `json:"type"`
	Amount      float64                `json:"amount,omitempty"`
	Date        string                 `json:"date,omitempty"`
	Description string                 `json:"description,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Direction   domain.TransactionKind `json:"transactionType,omitempty"`
	DueDay      int                    `json:"dueDate,omitempty"`
}

// Extractor extracts entries from one text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entry, error)
}

// Gemini is the Extractor backed by the Gemini API. Credentials come from
// the environment (GEMINI_API_KEY or Application Default Credentials).
type Gemini struct {
	model string
	now   func() time.Time
}

// NewGemini creates an extractor for the given model name; empty selects
// DefaultModelName.
func NewGemini(model string) *Gemini {
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{model: model, now: time.Now}
}

// Extract sends the text to the model and decodes the structured entries.
func (g *Gemini) Extract(ctx context.Context, text string) ([]Entry, error) {
	if text == "" {
		return nil, fmt.Errorf("extract: empty input text")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("extract: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(text, g.now())},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("extract: empty response from model")
	}

	entries, err := decodeEntries(cleanModelJSON(rawText))
	if err != nil {
		return nil, fmt.Errorf("extract: %w\nraw response: %s", err, rawText)
	}
	return entries, nil
}

// ExtractAll runs one extraction per text concurrently and joins the
// results in input order. A failure in any one fails the whole batch with
// the joined errors; no partial result is returned.
func ExtractAll(ctx context.Context, ex Extractor, texts []string) ([]Entry, error) {
	results := make([][]Entry, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			results[i], errs[i] = ex.Extract(ctx, text)
		}(i, text)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var all []Entry
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// Valid filters out entries the model marked invalid.
func Valid(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == KindTransaction || e.Kind == KindBill {
			out = append(out, e)
		}
	}
	return out
}
