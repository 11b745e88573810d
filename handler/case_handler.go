package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"caseflow/models"
	"caseflow/service"

	"github.com/gorilla/mux"
)

// CaseHandler handles HTTP requests for cases
type CaseHandler struct {
	service *service.CaseService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(svc *service.CaseService) *CaseHandler {
	return &CaseHandler{service: svc}
}

type createCaseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AssignedTo  *int64 `json:"assigned_to"`
	ActorID     *int64 `json:"actor_id"`
}

// CreateCase handles POST /api/v1/cases
func (h *CaseHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.Title == "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "title is required")
		return
	}

	c, err := h.service.CreateCase(service.CreateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.CasePriority(req.Priority),
		AssignedTo:  req.AssignedTo,
		ActorID:     req.ActorID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

// GetCase handles GET /api/v1/cases/{id}
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.GetCase(caseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// GetCaseByNumber handles GET /api/v1/cases/number/{number}
func (h *CaseHandler) GetCaseByNumber(w http.ResponseWriter, r *http.Request) {
	caseNumber := mux.Vars(r)["number"]

	c, err := h.service.GetCaseByNumber(caseNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	ActorID *int64 `json:"actor_id"`
}

// ChangeStatus handles PATCH /api/v1/cases/{id}/status
func (h *CaseHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	c, err := h.service.ChangeStatus(caseID, models.CaseStatus(req.Status), req.ActorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type changePriorityRequest struct {
	Priority string `json:"priority"`
	ActorID  *int64 `json:"actor_id"`
}

// ChangePriority handles PATCH /api/v1/cases/{id}/priority
func (h *CaseHandler) ChangePriority(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req changePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	c, err := h.service.ChangePriority(caseID, models.CasePriority(req.Priority), req.ActorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type assignRequest struct {
	UserID  int64  `json:"user_id"`
	ActorID *int64 `json:"actor_id"`
}

// AssignCase handles PATCH /api/v1/cases/{id}/assignee
func (h *CaseHandler) AssignCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "user_id is required")
		return
	}

	c, err := h.service.Assign(caseID, req.UserID, req.ActorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type addCommentRequest struct {
	Text    string `json:"text"`
	ActorID *int64 `json:"actor_id"`
}

// AddComment handles POST /api/v1/cases/{id}/comments
func (h *CaseHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.Text == "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "text is required")
		return
	}

	if err := h.service.AddComment(caseID, req.Text, req.ActorID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "comment added"})
}

// GetTimeline handles GET /api/v1/cases/{id}/timeline
func (h *CaseHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.service.GetCase(caseID); err != nil {
		respondServiceError(w, err)
		return
	}

	events, err := h.service.GetTimeline(caseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if events == nil {
		events = []models.TimelineEvent{}
	}
	respondWithJSON(w, http.StatusOK, events)
}

// DeleteCase handles DELETE /api/v1/cases/{id}
func (h *CaseHandler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCase(caseID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pathID parses the {id} path variable, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid ID in path")
		return 0, false
	}
	return id, true
}

// respondServiceError maps domain errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrCaseNotFound), errors.Is(err, models.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, models.ErrInvalidAssignee):
		respondWithError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		log.Printf("[HANDLER] Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
	}
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := models.ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	}
	respondWithJSON(w, statusCode, response)
}
