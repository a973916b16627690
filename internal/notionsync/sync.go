package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finanai/internal/domain"
	"github.com/dvloznov/finanai/internal/logger"
	"github.com/jomei/notionapi"
)

// SyncTransactions reconciles the Notion database with the aggregate's
// transactions: creates pages for transactions not yet mirrored and
// archives pages whose transaction id is no longer present.
func SyncTransactions(ctx context.Context, client NotionService, databaseID string, txs []domain.Transaction) error {
	log := logger.FromContext(ctx)

	log.Info().Int("transaction_count", len(txs)).Msg("Starting transaction sync to Notion")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	pages, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return fmt.Errorf("query existing pages: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	var archived int
	for _, page := range pages {
		txID := pageTransactionID(page)
		if txID != "" && valid[txID] {
			existing[txID] = true
			continue
		}
		if err := client.ArchivePage(ctx, page.ID.String()); err != nil {
			return fmt.Errorf("archive stale page %s: %w", page.ID, err)
		}
		archived++
	}

	var created int
	for _, tx := range txs {
		if existing[tx.ID] {
			continue
		}
		if _, err := client.CreatePage(ctx, databaseID, TransactionToProperties(tx)); err != nil {
			return fmt.Errorf("create page for transaction %s: %w", tx.ID, err)
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("archived", archived).
		Int("unchanged", len(existing)).
		Msg("Notion sync finished")

	return nil
}

// queryAllPages pages through the full database.
func queryAllPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	req := &notionapi.DatabaseQueryRequest{PageSize: 100}

	for {
		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore {
			return pages, nil
		}
		req.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}
