package handler

import (
	"net/http"

	"caseflow/service"
)

// SweepHandler exposes manual sweep triggers for operators. The background
// workers run the same code on their schedule; these endpoints exist so a
// pilot or an incident responder can force a pass without waiting for a tick.
type SweepHandler struct {
	sla        *service.SLAService
	escalation *service.EscalationService
	reconcile  *service.ReconcileService
	digest     *service.DigestService
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(
	sla *service.SLAService,
	escalation *service.EscalationService,
	reconcile *service.ReconcileService,
	digest *service.DigestService,
) *SweepHandler {
	return &SweepHandler{
		sla:        sla,
		escalation: escalation,
		reconcile:  reconcile,
		digest:     digest,
	}
}

// TriggerBreachSweep handles POST /api/v1/sweeps/breaches
func (h *SweepHandler) TriggerBreachSweep(w http.ResponseWriter, r *http.Request) {
	flagged, err := h.sla.ProcessBreaches(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"flagged": flagged})
}

// TriggerEscalationSweep handles POST /api/v1/sweeps/escalations
func (h *SweepHandler) TriggerEscalationSweep(w http.ResponseWriter, r *http.Request) {
	results, err := h.escalation.ProcessEscalations(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if results == nil {
		results = []service.EscalationResult{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"processed": len(results),
		"results":   results,
	})
}

// TriggerReconciliation handles POST /api/v1/sweeps/reconciliation
func (h *SweepHandler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	corrected, err := h.reconcile.ProcessReconciliation(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"corrected": corrected})
}

// TriggerDigest handles POST /api/v1/sweeps/digests
func (h *SweepHandler) TriggerDigest(w http.ResponseWriter, r *http.Request) {
	queued, err := h.digest.ProcessDigests(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"queued": queued})
}
