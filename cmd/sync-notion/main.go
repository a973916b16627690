package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finanai/internal/domain"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/logger"
	"github.com/dvloznov/finanai/internal/notionsync"
	"github.com/dvloznov/finanai/internal/store/localfile"
	"github.com/joho/godotenv"
)

// Mirrors the guest-mode transactions into a Notion database. One Notion
// page per transaction, keyed by transaction ID; pages for transactions
// that no longer exist are archived.

func main() {
	_ = godotenv.Load()
	log := logger.New()

	dataDir := flag.String("data-dir", envOr("DATA_DIR", ".finanai"), "Directory holding the guest data file")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DATABASE_ID"), "Notion database ID (or set NOTION_DATABASE_ID env)")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	local, err := localfile.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dataDir).Msg("Failed to open data directory")
	}
	raw, ok, err := local.Get(identity.GuestKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read data")
	}
	if !ok {
		fmt.Println("No local data to sync.")
		return
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Fatal().Err(err).Msg("Stored data is corrupt")
	}
	data := domain.Normalize(doc)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Int("transactions", len(data.Transactions)).Msg("Starting Notion sync")

	if err := notionsync.SyncTransactions(ctx, notionsync.NewClient(*notionToken), *notionDBID, data.Transactions); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
