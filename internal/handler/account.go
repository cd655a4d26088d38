package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
	"github.com/Scoutersq/campus-connect-sub001/internal/repository"
)

// AccountHandler covers administrator-side account management: member
// accounts are provisioned by an administrator, not self-registered.
type AccountHandler struct {
	members *repository.MemberRepository
}

func NewAccountHandler(members *repository.MemberRepository) *AccountHandler {
	return &AccountHandler{members: members}
}

type createMemberRequest struct {
	LoginID    string `json:"login_id"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

func (h *AccountHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.LoginID = strings.TrimSpace(req.LoginID)
	req.Name = strings.TrimSpace(req.Name)
	if req.LoginID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "login_id and name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Errorf("create member hash: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}
	m := &model.Member{
		ID:           uuid.New().String(),
		LoginID:      req.LoginID,
		PasswordHash: string(hash),
		Name:         req.Name,
		Department:   strings.TrimSpace(req.Department),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.members.Create(r.Context(), m); err != nil {
		logger.Errorf("create member login=%s: %v", req.LoginID, err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "member": m.ToPublic()})
}

func (h *AccountHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.members.List(r.Context(), limit, offset)
	if err != nil {
		logger.Errorf("list members: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "members": list})
}
