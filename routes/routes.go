package routes

import (
	"caseflow/handler"
	"caseflow/repository"
	"caseflow/service"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	caseService *service.CaseService,
	slaService *service.SLAService,
	escalationService *service.EscalationService,
	reconcileService *service.ReconcileService,
	digestService *service.DigestService,
	healthService *service.HealthService,
	userRepo *repository.UserRepository,
) *mux.Router {
	router := mux.NewRouter()

	// Initialize handlers
	caseHandler := handler.NewCaseHandler(caseService)
	userHandler := handler.NewUserHandler(userRepo)
	sweepHandler := handler.NewSweepHandler(slaService, escalationService, reconcileService, digestService)
	healthHandler := handler.NewHealthHandler(healthService)

	// API v1 routes
	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Case lifecycle routes
	cases := apiV1.PathPrefix("/cases").Subrouter()

	// POST /api/v1/cases - Create a new case
	cases.HandleFunc("", caseHandler.CreateCase).Methods("POST")

	// GET /api/v1/cases/number/{number} - Get case by human-readable number
	cases.HandleFunc("/number/{number}", caseHandler.GetCaseByNumber).Methods("GET")

	// GET /api/v1/cases/{id} - Get case by ID
	cases.HandleFunc("/{id}", caseHandler.GetCase).Methods("GET")

	// PATCH /api/v1/cases/{id}/status - Change workflow status
	cases.HandleFunc("/{id}/status", caseHandler.ChangeStatus).Methods("PATCH")

	// PATCH /api/v1/cases/{id}/priority - Change priority (resets SLA clock)
	cases.HandleFunc("/{id}/priority", caseHandler.ChangePriority).Methods("PATCH")

	// PATCH /api/v1/cases/{id}/assignee - Reassign the case
	cases.HandleFunc("/{id}/assignee", caseHandler.AssignCase).Methods("PATCH")

	// POST /api/v1/cases/{id}/comments - Add a timeline comment
	cases.HandleFunc("/{id}/comments", caseHandler.AddComment).Methods("POST")

	// GET /api/v1/cases/{id}/timeline - Get the case timeline
	cases.HandleFunc("/{id}/timeline", caseHandler.GetTimeline).Methods("GET")

	// DELETE /api/v1/cases/{id} - Remove a case and its timeline
	cases.HandleFunc("/{id}", caseHandler.DeleteCase).Methods("DELETE")

	// User directory routes
	users := apiV1.PathPrefix("/users").Subrouter()

	// POST /api/v1/users - Create a directory user
	users.HandleFunc("", userHandler.CreateUser).Methods("POST")

	// GET /api/v1/users/{id} - Get a user with workload counters
	users.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")

	// GET /api/v1/users/{id}/stats - Monthly resolution performance buckets
	users.HandleFunc("/{id}/stats", userHandler.GetMonthlyStats).Methods("GET")

	// Manual sweep triggers (workers run the same passes on their schedule)
	sweeps := apiV1.PathPrefix("/sweeps").Subrouter()
	sweeps.HandleFunc("/breaches", sweepHandler.TriggerBreachSweep).Methods("POST")
	sweeps.HandleFunc("/escalations", sweepHandler.TriggerEscalationSweep).Methods("POST")
	sweeps.HandleFunc("/reconciliation", sweepHandler.TriggerReconciliation).Methods("POST")
	sweeps.HandleFunc("/digests", sweepHandler.TriggerDigest).Methods("POST")

	// Health check endpoint (cached snapshot; never touches the database)
	router.HandleFunc("/health", healthHandler.GetHealth).Methods("GET")

	return router
}
