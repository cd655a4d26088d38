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

type NoticeHandler struct {
	notices *repository.NoticeRepository
	hub     *ws.Hub
}

func NewNoticeHandler(notices *repository.NoticeRepository, hub *ws.Hub) *NoticeHandler {
	return &NoticeHandler{notices: notices, hub: hub}
}

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.notices.List(r.Context(), limit, offset)
	if err != nil {
		logger.Errorf("list notices: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load notices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notices": list})
}

type createNoticeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

// Create publishes a notice and pushes it to every connected client.
func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req createNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	n := &model.Notice{
		ID:        uuid.New().String(),
		AuthorID:  id.AccountID,
		Title:     req.Title,
		Content:   req.Content,
		Pinned:    req.Pinned,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.notices.Create(r.Context(), n); err != nil {
		logger.Errorf("create notice author=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to create notice")
		return
	}
	h.hub.BroadcastNoticeCreated(n)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "notice": n})
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "id")
	if err := h.notices.Delete(r.Context(), noticeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notice not found")
			return
		}
		logger.Errorf("delete notice id=%s: %v", noticeID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete notice")
		return
	}
	h.hub.BroadcastNoticeDeleted(noticeID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
