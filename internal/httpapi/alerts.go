package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Thomson-dev/safeVoice-backend/internal/authmw"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

type locationPayload struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Accuracy *float64 `json:"accuracy"`
}

func (l *locationPayload) toLocation() *emergency.Location {
	if l == nil {
		return nil
	}
	return &emergency.Location{
		Lat:       l.Lat,
		Lon:       l.Lon,
		Accuracy:  l.Accuracy,
		Timestamp: time.Now().UTC(),
	}
}

func (a *API) handleSOS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location *locationPayload `json:"location"`
	}
	// SOS must fire even with an empty body.
	_ = json.NewDecoder(r.Body).Decode(&req)

	alert, notified, err := a.dispatcher.TriggerSOS(r.Context(), identity(r).UserID, req.Location.toLocation())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"alertId":          alert.ID,
		"contactsNotified": notified,
		"alert":            alert,
	})
}

func (a *API) handleEscalate(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	var req struct {
		Reason         string           `json:"reason"`
		GuardianPhones []string         `json:"guardianPhones"`
		GuardianEmails []string         `json:"guardianEmails"`
		Location       *locationPayload `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid payload")
		return
	}

	alert, err := a.dispatcher.Escalate(r.Context(), emergency.EscalationRequest{
		CaseID:            caseID,
		CallerCounselorID: identity(r).UserID,
		Reason:            req.Reason,
		Trigger:           emergency.TriggerManualEscalation,
		GuardianPhones:    req.GuardianPhones,
		GuardianEmails:    req.GuardianEmails,
		Location:          req.Location.toLocation(),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"alertId":    alert.ID,
		"alertsSent": alert.AlertsSent,
		"alert":      alert,
	})
}

func (a *API) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.dispatcher.ListActive(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(alerts), "alerts": alerts})
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := identity(r)

	alert, ok, err := a.dispatcher.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !ok {
		errorJSON(w, http.StatusNotFound, "alert not found")
		return
	}

	// Visible to the student who raised it, the assigned counselor, and
	// admins.
	if caller.UserID != alert.StudentID && caller.UserID != alert.CounselorID && caller.Role != authmw.RoleAdmin {
		errorJSON(w, http.StatusForbidden, "not authorized to view this alert")
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ResolutionNotes string `json:"resolutionNotes"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	alert, err := a.dispatcher.Resolve(r.Context(), id, identity(r).UserID, req.ResolutionNotes)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}
