// Package httpapi exposes the case and alert operations over HTTP. Handlers
// are thin: decode, call the domain service, map sentinel errors to status
// codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/Thomson-dev/safeVoice-backend/internal/authmw"
	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
)

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	registry   *casefile.Registry
	balancer   *casefile.Balancer
	dispatcher *emergency.Dispatcher
}

// New creates a new API handler.
func New(logger log.Logger, registry *casefile.Registry, balancer *casefile.Balancer, dispatcher *emergency.Dispatcher) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if registry == nil || balancer == nil || dispatcher == nil {
		panic(xerrors.New("registry, balancer and dispatcher are required"))
	}
	return &API{
		logger:     logger,
		registry:   registry,
		balancer:   balancer,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes attaches API endpoints to the router. Every route requires
// gateway identity headers; role checks follow the operation table.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.ExtractIdentity())

		r.Route("/cases", func(r chi.Router) {
			r.With(authmw.RequireRole(authmw.RoleService, authmw.RoleAdmin)).Post("/", a.handleCreateCase)
			r.With(authmw.RequireRole(authmw.RoleAdmin)).Get("/", a.handleListCases)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Get("/unassigned", a.handleListUnassigned)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Get("/mine", a.handleMyCases)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Post("/{id}/claim", a.handleClaim)
			r.With(authmw.RequireRole(authmw.RoleService, authmw.RoleAdmin)).Post("/{id}/auto-assign", a.handleAutoAssign)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Patch("/{id}/status", a.handleUpdateStatus)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Patch("/{id}/risk", a.handleUpdateRisk)
			r.With(authmw.RequireRole(authmw.RoleCounselor, authmw.RoleAdmin)).Get("/{id}/alerts", a.handleCaseAlerts)
		})

		r.Route("/counselors", func(r chi.Router) {
			r.With(authmw.RequireRole(authmw.RoleCounselor, authmw.RoleAdmin)).Get("/workloads", a.handleAllWorkloads)
			r.With(authmw.RequireRole(authmw.RoleCounselor, authmw.RoleAdmin)).Get("/{id}/workload", a.handleWorkload)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.With(authmw.RequireRole(authmw.RoleStudent)).Post("/sos", a.handleSOS)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Post("/escalate/{caseID}", a.handleEscalate)
			r.Get("/", a.handleActiveAlerts)
			r.Get("/{id}", a.handleGetAlert)
			r.With(authmw.RequireRole(authmw.RoleCounselor)).Patch("/{id}/resolve", a.handleResolve)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain sentinels to HTTP status codes. Unexpected errors
// log full detail and return a generic message.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, casefile.ErrInvalidInput),
		errors.Is(err, emergency.ErrValidation),
		errors.Is(err, emergency.ErrNoPhoneContacts),
		errors.Is(err, emergency.ErrAlreadyResolved),
		errors.Is(err, casefile.ErrBadTransition),
		errors.Is(err, casefile.ErrCaseClosed),
		errors.Is(err, casefile.ErrAlreadyAssigned):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, casefile.ErrNotOwner), errors.Is(err, emergency.ErrNotOwner):
		errorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, casefile.ErrNotFound), errors.Is(err, emergency.ErrNotFound):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, casefile.ErrDuplicateReport):
		errorJSON(w, http.StatusConflict, err.Error())
	default:
		a.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func identity(r *http.Request) authmw.Identity {
	id, _ := authmw.FromContext(r.Context())
	return id
}
