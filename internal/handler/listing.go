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

type ListingHandler struct {
	listings *repository.ListingRepository
}

func NewListingHandler(listings *repository.ListingRepository) *ListingHandler {
	return &ListingHandler{listings: listings}
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.listings.List(r.Context(), limit, offset)
	if err != nil {
		logger.Errorf("list listings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "listings": list})
}

type createListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	l := &model.Listing{
		ID:          uuid.New().String(),
		SellerID:    id.AccountID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Status:      model.ListingStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.listings.Create(r.Context(), l); err != nil {
		logger.Errorf("create listing seller=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to create listing")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "listing": l})
}

// MarkSold flips the seller's own listing to sold.
func (h *ListingHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	listingID := chi.URLParam(r, "id")
	if err := h.listings.SetStatus(r.Context(), listingID, id.AccountID, model.ListingStatusSold); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		logger.Errorf("mark sold listing=%s: %v", listingID, err)
		writeError(w, http.StatusInternalServerError, "failed to update listing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Delete removes a listing. Sellers delete their own; administrators any.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	listingID := chi.URLParam(r, "id")
	l, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		logger.Errorf("get listing id=%s: %v", listingID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete listing")
		return
	}
	if id.Role != model.RoleAdmin && l.SellerID != id.AccountID {
		writeError(w, http.StatusForbidden, "not your listing")
		return
	}
	if err := h.listings.Delete(r.Context(), listingID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Errorf("delete listing id=%s: %v", listingID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete listing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
