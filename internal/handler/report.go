package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/middleware"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
	"github.com/Scoutersq/campus-connect-sub001/internal/repository"
	"github.com/Scoutersq/campus-connect-sub001/internal/ws"
)

type ReportHandler struct {
	reports *repository.ReportRepository
	hub     *ws.Hub
}

func NewReportHandler(reports *repository.ReportRepository, hub *ws.Hub) *ReportHandler {
	return &ReportHandler{reports: reports, hub: hub}
}

type createReportRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create files a report for the authenticated member and notifies connected
// administrators.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	rep := &model.Report{
		ID:        uuid.New().String(),
		AuthorID:  id.AccountID,
		Title:     req.Title,
		Content:   req.Content,
		Status:    model.ReportStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.reports.Create(r.Context(), rep); err != nil {
		logger.Errorf("create report author=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}
	h.hub.BroadcastReportCreated(rep)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "report": rep})
}

// ListMine lists the authenticated member's own reports.
func (h *ReportHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	limit, offset := pageParams(r)
	list, err := h.reports.List(r.Context(), id.AccountID, limit, offset)
	if err != nil {
		logger.Errorf("list reports author=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": list})
}

// ListAll is the administrator review queue.
func (h *ReportHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.reports.List(r.Context(), "", limit, offset)
	if err != nil {
		logger.Errorf("list all reports: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": list})
}

type reviewReportRequest struct {
	Status model.ReportStatus `json:"status"`
}

// Review records an administrator's decision and notifies the author.
func (h *ReportHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	reportID := chi.URLParam(r, "id")
	var req reviewReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != model.ReportStatusReviewed && req.Status != model.ReportStatusRejected {
		writeError(w, http.StatusBadRequest, "status must be reviewed or rejected")
		return
	}
	if err := h.reports.SetStatus(r.Context(), reportID, req.Status, id.AccountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		logger.Errorf("review report id=%s: %v", reportID, err)
		writeError(w, http.StatusInternalServerError, "failed to review report")
		return
	}
	rep, err := h.reports.GetByID(r.Context(), reportID)
	if err == nil {
		h.hub.NotifyReportReviewed(rep.AuthorID, rep)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
