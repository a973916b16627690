package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finanai/internal/analytics"
	"github.com/dvloznov/finanai/internal/api/handlers"
	"github.com/dvloznov/finanai/internal/api/middleware"
	"github.com/dvloznov/finanai/internal/backup"
	"github.com/dvloznov/finanai/internal/extract"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/logger"
	"github.com/dvloznov/finanai/internal/notionsync"
	"github.com/dvloznov/finanai/internal/store"
	fsstore "github.com/dvloznov/finanai/internal/store/firestore"
	"github.com/dvloznov/finanai/internal/store/localfile"
	"github.com/dvloznov/finanai/internal/syncer"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environment wins over file values.
	_ = godotenv.Load()

	var (
		port       = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		project    = flag.String("project", os.Getenv("FIRESTORE_PROJECT"), "GCP project for Firestore (or set FIRESTORE_PROJECT env); empty runs in-memory")
		collection = flag.String("collection", envOr("FIRESTORE_COLLECTION", fsstore.DefaultCollection), "Firestore collection holding per-user documents")
		dataDir    = flag.String("data-dir", envOr("DATA_DIR", ".finanai"), "Directory for guest data files")
		jwtSecret  = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for bearer tokens (or set JWT_SECRET env)")
		bucket     = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for backups (or set GCS_BUCKET env)")
		bqDataset  = flag.String("bq-dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset for transaction analytics")
		bqTable    = flag.String("bq-table", envOr("BQ_TABLE", "transactions"), "BigQuery table for transaction analytics")
		model      = flag.String("model", envOr("GEMINI_MODEL", extract.DefaultModelName), "Gemini model for text extraction")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	// Remote store: Firestore when a project is configured, in-memory
	// otherwise so the server still runs locally.
	var remote store.DocumentStore
	if *project != "" {
		fs, err := fsstore.New(ctx, *project, *collection, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		defer fs.Close()
		remote = fs
	} else {
		log.Warn().Msg("No Firestore project configured - authenticated data is kept in memory only")
		remote = store.NewMemoryDocumentStore()
	}

	local, err := localfile.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dataDir).Msg("Failed to open guest data directory")
	}

	if *jwtSecret == "" {
		log.Warn().Msg("No JWT secret configured - every request is treated as guest")
	}

	shutdownCtx := context.Background()
	manager := syncer.NewManager(ctx, remote, local, syncer.LogNotifier{Log: log}, log)
	defer manager.Close(shutdownCtx)

	opts := []handlers.Option{
		handlers.WithExtractor(extract.NewGemini(*model)),
	}
	if *bucket != "" {
		opts = append(opts, handlers.WithBackup(backup.NewUploader(*bucket)))
	} else {
		log.Warn().Msg("No GCS bucket configured - backups are disabled")
	}
	if *project != "" && *bqDataset != "" {
		exporter, err := analytics.NewExporter(ctx, *project, *bqDataset, *bqTable, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create analytics exporter")
		}
		defer exporter.Close()
		opts = append(opts, handlers.WithAnalytics(exporter))
	}
	if token := os.Getenv("NOTION_TOKEN"); token != "" {
		opts = append(opts, handlers.WithNotion(notionsync.NewClient(token), os.Getenv("NOTION_DATABASE_ID")))
	}

	mux := http.NewServeMux()
	handlers.NewFinanceHandler(manager, log, opts...).Routes(mux)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Identity(identity.NewTokenResolver(*jwtSecret))(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopCtx, cancel := context.WithTimeout(shutdownCtx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(stopCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Flush pending saves before exiting.
	if err := manager.Close(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping sessions")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
