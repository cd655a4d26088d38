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
)

type PostHandler struct {
	posts *repository.PostRepository
}

func NewPostHandler(posts *repository.PostRepository) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.posts.List(r.Context(), limit, offset)
	if err != nil {
		logger.Errorf("list posts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": list})
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	p := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  id.AccountID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.posts.Create(r.Context(), p); err != nil {
		logger.Errorf("create post author=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "post": p})
}

// Delete removes a post. Authors delete their own; administrators any.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	postID := chi.URLParam(r, "id")
	p, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		logger.Errorf("get post id=%s: %v", postID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	if id.Role != model.RoleAdmin && p.AuthorID != id.AccountID {
		writeError(w, http.StatusForbidden, "not your post")
		return
	}
	if err := h.posts.Delete(r.Context(), postID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Errorf("delete post id=%s: %v", postID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
