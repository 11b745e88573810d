package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"caseflow/models"
	"caseflow/repository"
)

// UserHandler handles HTTP requests for the user directory
type UserHandler struct {
	users *repository.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	SupervisorID  *int64 `json:"supervisor_id"`
	DigestEnabled *bool  `json:"digest_enabled"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.FullName == "" || req.Email == "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "full_name and email are required")
		return
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleAnalyst
	}
	switch role {
	case models.RoleAdmin, models.RoleSeniorAnalyst, models.RoleAnalyst, models.RoleViewer:
	default:
		respondWithError(w, http.StatusBadRequest, "Bad Request", "unknown role")
		return
	}

	u := &models.User{
		FullName:      req.FullName,
		Email:         req.Email,
		Role:          role,
		IsActive:      true,
		DigestEnabled: true,
	}
	if req.SupervisorID != nil {
		u.SupervisorID = sql.NullInt64{Int64: *req.SupervisorID, Valid: true}
	}
	if req.DigestEnabled != nil {
		u.DigestEnabled = *req.DigestEnabled
	}

	if err := h.users.CreateUser(u); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, u)
}

// GetUser handles GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.users.GetUserByID(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// GetMonthlyStats handles GET /api/v1/users/{id}/stats
func (h *UserHandler) GetMonthlyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.users.GetUserByID(userID); err != nil {
		respondServiceError(w, err)
		return
	}

	stats, err := h.users.GetMonthlyStats(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if stats == nil {
		stats = []models.MonthlyStat{}
	}
	respondWithJSON(w, http.StatusOK, stats)
}
