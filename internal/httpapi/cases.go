package httpapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

func (a *API) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportID  string `json:"reportId"`
		StudentID string `json:"studentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c, err := a.registry.Create(r.Context(), req.ReportID, req.StudentID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (a *API) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := a.registry.ListAll(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(cases), "cases": cases})
}

func (a *API) handleListUnassigned(w http.ResponseWriter, r *http.Request) {
	cases, err := a.registry.ListUnassigned(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(cases), "cases": cases})
}

func (a *API) handleMyCases(w http.ResponseWriter, r *http.Request) {
	cases, err := a.registry.ListByCounselor(r.Context(), identity(r).UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(cases), "cases": cases})
}

func (a *API) handleClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("safevoice.case.id", id))

	c, err := a.registry.Claim(r.Context(), id, identity(r).UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (a *API) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Candidates []string `json:"candidates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c, err := a.balancer.AutoAssign(r.Context(), id, req.Candidates)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	// c is nil when there were no candidates; the caller distinguishes by
	// the assigned flag.
	respondJSON(w, http.StatusOK, map[string]any{"assigned": c != nil, "case": c})
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status casefile.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c, err := a.registry.UpdateStatus(r.Context(), id, req.Status, identity(r).UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (a *API) handleUpdateRisk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := identity(r).UserID

	var req struct {
		RiskLevel casefile.RiskLevel `json:"riskLevel"`
		Notes     *string            `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c, prior, err := a.registry.UpdateRiskLevel(r.Context(), id, req.RiskLevel, req.Notes, caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	resp := map[string]any{"case": c}

	// A raise to critical system-triggers an escalation alert. The risk
	// update already succeeded, so a failed trigger is logged, not returned.
	if req.RiskLevel == casefile.RiskCritical && prior != casefile.RiskCritical {
		alert, err := a.dispatcher.Escalate(r.Context(), emergency.EscalationRequest{
			CaseID:            c.ID,
			CallerCounselorID: caller,
			Reason:            "Risk level raised to critical",
			Trigger:           emergency.TriggerRiskEscalation,
		})
		if err != nil {
			a.logger.Error(r.Context(), err, "risk escalation trigger failed", "case_id", c.ID)
		} else {
			resp["alertId"] = alert.ID
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (a *API) handleCaseAlerts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alerts, err := a.dispatcher.ListByCase(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(alerts), "alerts": alerts})
}

func (a *API) handleAllWorkloads(w http.ResponseWriter, r *http.Request) {
	workloads, err := a.balancer.AllWorkloads(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"workloads": workloads})
}

func (a *API) handleWorkload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	workload, err := a.balancer.Workload(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, workload)
}
