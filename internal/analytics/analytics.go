// Package analytics streams created transactions into BigQuery for
// reporting. It is an optional sink: failures are logged and never reach
// the user-facing path.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finanai/internal/domain"
	"github.com/rs/zerolog"
)

// TransactionRow is the finance.transactions table schema.
type TransactionRow struct {
	TransactionID string    `bigquery:"transaction_id"`
	UserID        string    `bigquery:"user_id"`
	Kind          string    `bigquery:"type"`
	Amount        float64   `bigquery:"amount"`
	Description   string    `bigquery:"description"`
	Category      string    `bigquery:"category"`
	Date          string    `bigquery:"date"`
	RecordedTS    time.Time `bigquery:"recorded_ts"`
}

// Exporter writes transaction rows via the streaming inserter.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	table   string
	log     zerolog.Logger
}

// NewExporter connects to BigQuery using Application Default Credentials.
func NewExporter(ctx context.Context, projectID, dataset, table string, log zerolog.Logger) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analytics: bigquery client: %w", err)
	}
	return &Exporter{client: client, dataset: dataset, table: table, log: log}, nil
}

// Close releases the underlying client.
func (e *Exporter) Close() error {
	return e.client.Close()
}

// RecordTransaction streams one created transaction.
func (e *Exporter) RecordTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	row := &TransactionRow{
		TransactionID: tx.ID,
		UserID:        userID,
		Kind:          string(tx.Kind),
		Amount:        tx.Amount,
		Description:   tx.Description,
		Category:      tx.Category,
		Date:          tx.Date,
		RecordedTS:    time.Now(),
	}

	inserter := e.client.Dataset(e.dataset).Table(e.table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("analytics: inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

// RecordAsync streams the transaction without blocking the caller; errors
// are logged only.
func (e *Exporter) RecordAsync(userID string, tx domain.Transaction) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.RecordTransaction(ctx, userID, tx); err != nil {
			e.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Analytics export failed")
		}
	}()
}
