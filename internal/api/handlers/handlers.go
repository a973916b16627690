// Package handlers exposes the finance service over HTTP. Handlers
// validate intents, borrow the request identity's session, and dispatch;
// persistence is the session syncer's concern.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dvloznov/finanai/internal/analytics"
	"github.com/dvloznov/finanai/internal/api/middleware"
	"github.com/dvloznov/finanai/internal/backup"
	"github.com/dvloznov/finanai/internal/domain"
	"github.com/dvloznov/finanai/internal/extract"
	"github.com/dvloznov/finanai/internal/finance"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/notionsync"
	"github.com/dvloznov/finanai/internal/syncer"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FinanceHandler carries the per-identity sessions plus the optional
// export collaborators.
type FinanceHandler struct {
	sessions  *syncer.Manager
	extractor extract.Extractor
	exporter  *analytics.Exporter
	uploader  *backup.Uploader
	notion    notionsync.NotionService
	notionDB  string
	log       zerolog.Logger
}

// Option configures optional collaborators on the handler.
type Option func(*FinanceHandler)

// WithExtractor enables the natural-language extraction endpoint.
func WithExtractor(ex extract.Extractor) Option {
	return func(h *FinanceHandler) { h.extractor = ex }
}

// WithAnalytics streams created transactions to BigQuery.
func WithAnalytics(e *analytics.Exporter) Option {
	return func(h *FinanceHandler) { h.exporter = e }
}

// WithBackup enables snapshot exports to GCS.
func WithBackup(u *backup.Uploader) Option {
	return func(h *FinanceHandler) { h.uploader = u }
}

// WithNotion enables the transaction mirror.
func WithNotion(client notionsync.NotionService, databaseID string) Option {
	return func(h *FinanceHandler) {
		h.notion = client
		h.notionDB = databaseID
	}
}

// NewFinanceHandler creates the handler over the session manager.
func NewFinanceHandler(sessions *syncer.Manager, log zerolog.Logger, opts ...Option) *FinanceHandler {
	h := &FinanceHandler{sessions: sessions, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *FinanceHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/state", h.GetState)
	mux.HandleFunc("POST /api/transactions", h.AddTransaction)
	mux.HandleFunc("POST /api/bills", h.AddBill)
	mux.HandleFunc("POST /api/bills/{id}/pay", h.PayBill)
	mux.HandleFunc("POST /api/goals", h.AddGoal)
	mux.HandleFunc("POST /api/goals/{id}/contribute", h.Contribute)
	mux.HandleFunc("POST /api/checklist", h.AddChecklistItem)
	mux.HandleFunc("PUT /api/checklist/{id}", h.UpdateChecklistItem)
	mux.HandleFunc("DELETE /api/checklist/{id}", h.DeleteChecklistItem)
	mux.HandleFunc("POST /api/chart/toggle", h.ToggleChart)
	mux.HandleFunc("GET /api/reminders", h.Reminders)
	mux.HandleFunc("POST /api/extract", h.Extract)
	mux.HandleFunc("POST /api/reset", h.Reset)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("POST /api/backup", h.Backup)
	mux.HandleFunc("POST /api/notion/sync", h.NotionSync)
}

// session borrows the request identity's loaded session, writing the error
// response itself on failure.
func (h *FinanceHandler) session(w http.ResponseWriter, r *http.Request) (*syncer.Session, bool) {
	id := middleware.IdentityFromContext(r.Context())
	if id.State == identity.Unresolved {
		middleware.WriteError(w, http.StatusUnauthorized, "Identity not resolved")
		return nil, false
	}
	sess, err := h.sessions.Session(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to open session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load data")
		return nil, false
	}
	return sess, true
}

// Health handles GET /health
func (h *FinanceHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState handles GET /api/state
func (h *FinanceHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sess.Service.State())
}

// parseAmount validates a user-supplied amount: it must parse as a decimal
// and be strictly positive. Direction is never encoded in the sign.
func parseAmount(raw json.Number) (float64, error) {
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return 0, errors.New("malformed amount")
	}
	if !d.IsPositive() {
		return 0, errors.New("amount must be positive")
	}
	f, _ := d.Float64()
	return f, nil
}

// AddTransaction handles POST /api/transactions
func (h *FinanceHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string      `json:"type"`
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		Category    string      `json:"category"`
		Date        string      `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind := domain.TransactionKind(req.Kind)
	if kind != domain.KindIncome && kind != domain.KindExpense {
		middleware.WriteError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tx := sess.Service.AddTransaction(finance.TransactionInput{
		Kind:        kind,
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	})
	h.recordAnalytics(sess.Identity, tx)

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// AddBill handles POST /api/bills
func (h *FinanceHandler) AddBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
		DueDay      int         `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		middleware.WriteError(w, http.StatusBadRequest, "dueDate must be a day of the month (1-31)")
		return
	}
	// The amount may be absent until the first extraction fills it.
	var amount float64
	if req.Amount != "" {
		parsed, err := parseAmount(req.Amount)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		amount = parsed
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	bill := sess.Service.AddBill(finance.BillInput{
		Description: req.Description,
		Amount:      amount,
		DueDay:      req.DueDay,
	})

	middleware.WriteJSON(w, http.StatusCreated, bill)
}

// PayBill handles POST /api/bills/{id}/pay
func (h *FinanceHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	billID := r.PathValue("id")

	// An empty body means "this month".
	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Month == "" {
		req.Month = domain.MonthToken(time.Now())
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "month must look like 2024-05")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tx, err := sess.Service.PayBill(billID, req.Month)
	if errors.Is(err, finance.ErrBillNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("bill_id", billID).Msg("Failed to pay bill")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to pay bill")
		return
	}
	if tx == nil {
		// Already paid for that month; idempotent no-op.
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"paid": true})
		return
	}
	h.recordAnalytics(sess.Identity, *tx)

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"paid":        true,
		"transaction": tx,
	})
}

// AddGoal handles POST /api/goals
func (h *FinanceHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string      `json:"name"`
		TargetAmount json.Number `json:"targetAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "targetAmount: "+err.Error())
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	goal := sess.Service.AddGoal(finance.GoalInput{Name: req.Name, TargetAmount: target})

	middleware.WriteJSON(w, http.StatusCreated, goal)
}

// Contribute handles POST /api/goals/{id}/contribute
func (h *FinanceHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	var req struct {
		Amount json.Number `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tx, err := sess.Service.Contribute(goalID, amount)
	if errors.Is(err, finance.ErrGoalNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("goal_id", goalID).Msg("Failed to contribute")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to contribute")
		return
	}
	h.recordAnalytics(sess.Identity, *tx)

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
	})
}

// AddChecklistItem handles POST /api/checklist
func (h *FinanceHandler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	item := sess.Service.AddChecklistItem(req.Text)

	middleware.WriteJSON(w, http.StatusCreated, item)
}

// UpdateChecklistItem handles PUT /api/checklist/{id}
func (h *FinanceHandler) UpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	item := domain.ChecklistItem{ID: r.PathValue("id"), Text: req.Text, Completed: req.Completed}
	sess.Service.UpdateChecklistItem(item)

	middleware.WriteJSON(w, http.StatusOK, item)
}

// DeleteChecklistItem handles DELETE /api/checklist/{id}
func (h *FinanceHandler) DeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Service.DeleteChecklistItem(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ToggleChart handles POST /api/chart/toggle
func (h *FinanceHandler) ToggleChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Service.ToggleChart()
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"showChart": sess.Service.State().ShowChart})
}

// Reminders handles GET /api/reminders
func (h *FinanceHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	reminders := syncer.Reminders(sess.Service.State(), time.Now())
	if reminders == nil {
		reminders = []syncer.Reminder{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"reminders": reminders})
}

// Extract handles POST /api/extract. It only extracts; nothing is
// dispatched until the user confirms the entries.
func (h *FinanceHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Extraction is not configured")
		return
	}

	var req struct {
		Text  string   `json:"text"`
		Texts []string `json:"texts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append(texts, req.Text)
	}
	if len(texts) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	entries, err := extract.ExtractAll(r.Context(), h.extractor, texts)
	if err != nil {
		h.log.Error().Err(err).Msg("Extraction failed")
		middleware.WriteError(w, http.StatusBadGateway, "Could not understand the text")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": extract.Valid(entries),
	})
}

// Reset handles POST /api/reset: the erase-all-my-data operation.
func (h *FinanceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Syncer.Reset(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Reset failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to erase data")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Logout handles POST /api/logout: tears the identity's session down so no
// data lingers in memory.
func (h *FinanceHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), id); err != nil {
		h.log.Error().Err(err).Msg("Logout failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Backup handles POST /api/backup
func (h *FinanceHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	uri, err := h.uploader.Snapshot(r.Context(), sess.Identity.Key(), sess.Service.State())
	if err != nil {
		h.log.Error().Err(err).Msg("Backup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Backup failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

// NotionSync handles POST /api/notion/sync
func (h *FinanceHandler) NotionSync(w http.ResponseWriter, r *http.Request) {
	if h.notion == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Notion sync is not configured")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := notionsync.SyncTransactions(r.Context(), h.notion, h.notionDB, sess.Service.State().Transactions); err != nil {
		h.log.Error().Err(err).Msg("Notion sync failed")
		middleware.WriteError(w, http.StatusBadGateway, "Notion sync failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (h *FinanceHandler) recordAnalytics(id identity.Identity, tx domain.Transaction) {
	if h.exporter == nil {
		return
	}
	h.exporter.RecordAsync(id.Key(), tx)
}
