package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/rabbitfunding/pkg/export"
	"github.com/mcclellann/rabbitfunding/pkg/feed"
	"github.com/mcclellann/rabbitfunding/pkg/ledger"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/metrics"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/mcclellann/rabbitfunding/pkg/paging"
	"github.com/mcclellann/rabbitfunding/pkg/store"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, errorResponse{Error: message})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "healthy", "feed": "ok"}
	if s.syncer.LastError() != nil {
		resp["feed"] = "degraded"
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// loadFeed returns the current snapshot with saved edits overlaid on its
// payout events. It writes the error response itself when it fails.
func (s *Server) loadFeed(w http.ResponseWriter, r *http.Request) (feed.Snapshot, []models.PayoutEvent, bool) {
	ctxLogger := logger.FromContext(r.Context())

	snap, err := s.syncer.Current(r.Context())
	if err != nil {
		if errors.Is(err, feed.ErrNoData) {
			ctxLogger.Warn("No feed data available", "error", err)
			respondWithError(w, http.StatusServiceUnavailable, "Data feed unavailable, please try again later")
			return feed.Snapshot{}, nil, false
		}
		ctxLogger.Error("Failed to load feed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return feed.Snapshot{}, nil, false
	}

	edits, err := s.storage.GetEdits()
	if err != nil {
		ctxLogger.Error("Failed to load ledger edits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return feed.Snapshot{}, nil, false
	}
	return snap, ledger.ApplyEdits(snap.Events, edits), true
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}

func ledgerFilter(r *http.Request) ledger.Filter {
	q := r.URL.Query()
	return ledger.Filter{
		Search: q.Get("search"),
		Status: ledger.StatusFilter(strings.ToLower(q.Get("status"))),
		Range:  ledger.DateRange(strings.ToLower(q.Get("range"))),
	}
}

func (s *Server) dashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	snap, events, ok := s.loadFeed(w, r)
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"stats":     s.engine.Summarize(snap.Deals, events),
		"fetchedAt": snap.FetchedAt,
		"stale":     s.syncer.LastError() != nil,
	})
}

func (s *Server) listDealsHandler(w http.ResponseWriter, r *http.Request) {
	snap, events, ok := s.loadFeed(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filtered := metrics.FilterDeals(snap.Deals, metrics.DealFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Amount: q.Get("amount"),
	})
	page := paging.Slice(filtered, pageParam(r), s.dealsPageSize)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"deals":      s.engine.BreakdownAll(page.Items, events, s.now()),
		"page":       page.Page,
		"totalPages": page.TotalPages,
		"pageSize":   page.PageSize,
		"total":      page.Total,
		"quickStats": s.engine.QuickStats(filtered),
		"fetchedAt":  snap.FetchedAt,
	})
}

// filteredLedger projects the overlaid events and applies the request filters.
func (s *Server) filteredLedger(events []models.PayoutEvent, f ledger.Filter) []models.Transaction {
	return ledger.Apply(s.projector.Project(events), f, s.now())
}

func (s *Server) listLedgerHandler(w http.ResponseWriter, r *http.Request) {
	_, events, ok := s.loadFeed(w, r)
	if !ok {
		return
	}

	filtered := s.filteredLedger(events, ledgerFilter(r))
	page := s.projector.Paginate(filtered, pageParam(r))

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"transactions": page.Items,
		"page":         page.Page,
		"totalPages":   page.TotalPages,
		"pageSize":     page.PageSize,
		"total":        page.Total,
		"summary":      ledger.Summarize(filtered),
	})
}

func (s *Server) exportLedgerHandler(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		respondWithError(w, http.StatusBadRequest, "Unsupported export format")
		return
	}

	_, events, ok := s.loadFeed(w, r)
	if !ok {
		return
	}
	filtered := s.filteredLedger(events, ledgerFilter(r))

	var buf bytes.Buffer
	var err error
	contentType := "text/csv"
	if format == "xlsx" {
		contentType = xlsxContentType
		err = export.WriteXLSX(&buf, filtered)
	} else {
		err = export.WriteCSV(&buf, filtered)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to export ledger", "format", format, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to export ledger")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now(), format)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) updateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	historyKey := mux.Vars(r)["historyKey"]

	var edit models.TransactionEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if edit.Client == nil && edit.Amount == nil && edit.PrincipalApplied == nil && edit.FeeApplied == nil &&
		edit.Description == nil && edit.Error == nil && edit.Notes == nil {
		respondWithError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	snap, _, ok := s.loadFeed(w, r)
	if !ok {
		return
	}
	found := false
	for _, ev := range snap.Events {
		if ev.HistoryKey == historyKey {
			found = true
			break
		}
	}
	if !found {
		respondWithError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	edit.HistoryKey = historyKey
	edit.EditedAt = s.now()
	if err := s.storage.SaveEdit(&edit); err != nil {
		logger.FromContext(r.Context()).Error("Failed to save ledger edit", "historyKey", historyKey, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save edit")
		return
	}

	// An edit older than the stored one is ignored, so report what is in effect.
	edits, err := s.storage.GetEdits()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to reload ledger edits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}
	logger.FromContext(r.Context()).Info("Ledger edit saved", "historyKey", historyKey)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "edit": edits[historyKey]})
}

func (s *Server) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := s.storage.ListReports()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list reports", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "reports": reports})
}

func (s *Server) createReportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		DateRange    string `json:"dateRange"`
		SearchQuery  string `json:"searchQuery"`
		StatusFilter string `json:"statusFilter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Report name is required")
		return
	}
	if req.DateRange == "" {
		req.DateRange = string(ledger.RangeAll)
	}
	if req.StatusFilter == "" {
		req.StatusFilter = string(ledger.StatusAll)
	}

	_, events, ok := s.loadFeed(w, r)
	if !ok {
		return
	}
	filtered := s.filteredLedger(events, ledger.Filter{
		Search: req.SearchQuery,
		Status: ledger.StatusFilter(req.StatusFilter),
		Range:  ledger.DateRange(req.DateRange),
	})

	total := decimal.Zero
	for _, tx := range filtered {
		total = total.Add(tx.Amount)
	}
	report := &models.SavedReport{
		ID:               uuid.New(),
		Name:             req.Name,
		DateRange:        req.DateRange,
		SearchQuery:      req.SearchQuery,
		StatusFilter:     req.StatusFilter,
		TransactionCount: len(filtered),
		TotalAmount:      total,
		GeneratedAt:      s.now().UTC(),
	}
	if err := s.storage.CreateReport(report); err != nil {
		logger.FromContext(r.Context()).Error("Failed to save report", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save report")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "report": report})
}

func (s *Server) deleteReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID")
		return
	}
	if err := s.storage.DeleteReport(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Report not found")
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete report", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Report deleted"})
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.syncer.Refresh(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Manual feed refresh failed", "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to refresh data")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"fetchedAt": snap.FetchedAt,
		"deals":     len(snap.Deals),
		"events":    len(snap.Events),
	})
}
