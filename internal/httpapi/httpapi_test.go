package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/Thomson-dev/safeVoice-backend/internal/authmw"
	"github.com/Thomson-dev/safeVoice-backend/internal/casefile"
	casemem "github.com/Thomson-dev/safeVoice-backend/internal/casefile/memstore"
	"github.com/Thomson-dev/safeVoice-backend/internal/emergency"
	alertmem "github.com/Thomson-dev/safeVoice-backend/internal/emergency/memstore"
	"github.com/Thomson-dev/safeVoice-backend/internal/notify/devlog"
)

type fixture struct {
	router   chi.Router
	registry *casefile.Registry
	contacts *alertmem.Contacts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	caseStore := casemem.New()
	registry := casefile.NewRegistry(caseStore, log.Nop(), nil)
	balancer := casefile.NewBalancer(caseStore, log.Nop(), nil)

	alertStore := alertmem.New()
	contacts := alertmem.NewContacts()
	tokens := alertmem.NewTokens()
	dispatcher := emergency.NewDispatcher(alertStore, contacts, tokens, registry, devlog.New(nil), log.Nop(), nil)

	api := New(log.Nop(), registry, balancer, dispatcher)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	return &fixture{router: r, registry: registry, contacts: contacts}
}

func (f *fixture) do(t *testing.T, method, path string, body any, userID, role string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(authmw.HeaderUserID, userID)
		req.Header.Set(authmw.HeaderRole, role)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// seedClaimedCase creates a case for report r-1 and claims it for coun-1.
func (f *fixture) seedClaimedCase(t *testing.T) *casefile.Case {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/cases", map[string]string{"reportId": "r-1", "studentId": "stu-1"}, "svc-1", authmw.RoleService)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create case: %d %s", rec.Code, rec.Body.String())
	}
	var c casefile.Case
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode case: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/claim", nil, "coun-1", authmw.RoleCounselor)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim case: %d %s", rec.Code, rec.Body.String())
	}
	return &c
}

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	caseStore := casemem.New()
	registry := casefile.NewRegistry(caseStore, log.Nop(), nil)
	balancer := casefile.NewBalancer(caseStore, log.Nop(), nil)
	dispatcher := emergency.NewDispatcher(alertmem.New(), alertmem.NewContacts(), alertmem.NewTokens(), registry, devlog.New(nil), log.Nop(), nil)

	api := New(nil, registry, balancer, dispatcher)
	if api.logger == nil {
		t.Fatal("expected nop logger fallback")
	}
}

func TestNew_NilDeps_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic with nil dependencies")
		}
	}()
	New(log.Nop(), nil, nil, nil)
}

func TestCreateCase(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := map[string]string{"reportId": "r-1", "studentId": "stu-1"}

	if rec := f.do(t, http.MethodPost, "/api/v1/cases", body, "svc-1", authmw.RoleService); rec.Code != http.StatusCreated {
		t.Errorf("create = %d, want 201", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/cases", body, "svc-1", authmw.RoleService); rec.Code != http.StatusConflict {
		t.Errorf("duplicate report = %d, want 409", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/cases", map[string]string{"studentId": "stu-1"}, "svc-1", authmw.RoleService); rec.Code != http.StatusBadRequest {
		t.Errorf("missing reportId = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/cases", body, "stu-1", authmw.RoleStudent); rec.Code != http.StatusForbidden {
		t.Errorf("student create = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/cases", body, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no identity = %d, want 401", rec.Code)
	}
}

func TestClaim(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.seedClaimedCase(t)

	if rec := f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/claim", nil, "coun-2", authmw.RoleCounselor); rec.Code != http.StatusBadRequest {
		t.Errorf("claim assigned case = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/cases/missing/claim", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusNotFound {
		t.Errorf("claim missing case = %d, want 404", rec.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.seedClaimedCase(t)
	path := "/api/v1/cases/" + c.ID + "/status"

	if rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "bogus"}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "closed"}, "coun-2", authmw.RoleCounselor); rec.Code != http.StatusForbidden {
		t.Errorf("not owner = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, "/api/v1/cases/missing/status", map[string]string{"status": "closed"}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusNotFound {
		t.Errorf("missing case = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "closed"}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("close = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "active"}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusBadRequest {
		t.Errorf("reopen closed = %d, want 400", rec.Code)
	}
}

func TestUpdateRisk_CriticalTriggersEscalation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.seedClaimedCase(t)
	path := "/api/v1/cases/" + c.ID + "/risk"

	rec := f.do(t, http.MethodPatch, path, map[string]string{"riskLevel": "critical"}, "coun-1", authmw.RoleCounselor)
	if rec.Code != http.StatusOK {
		t.Fatalf("risk update = %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Case    casefile.Case `json:"case"`
		AlertID string        `json:"alertId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AlertID == "" {
		t.Error("expected alertId in response after raise to critical")
	}
	if resp.Case.RiskLevel != casefile.RiskCritical {
		t.Errorf("riskLevel = %q, want critical", resp.Case.RiskLevel)
	}

	updated, _, err := f.registry.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if updated.Status != casefile.StatusEscalated {
		t.Errorf("case status = %q, want escalated", updated.Status)
	}

	// A second update at critical must not fire another alert.
	rec = f.do(t, http.MethodPatch, path, map[string]string{"riskLevel": "critical"}, "coun-1", authmw.RoleCounselor)
	if rec.Code != http.StatusOK {
		t.Fatalf("second risk update = %d", rec.Code)
	}
	var second map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &second)
	if _, ok := second["alertId"]; ok {
		t.Error("unchanged critical risk should not trigger a new alert")
	}
}

func TestAutoAssign(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/cases", map[string]string{"reportId": "r-aa", "studentId": "stu-1"}, "svc-1", authmw.RoleService)
	var c casefile.Case
	_ = json.Unmarshal(rec.Body.Bytes(), &c)

	rec = f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/auto-assign", map[string]any{"candidates": []string{}}, "svc-1", authmw.RoleService)
	if rec.Code != http.StatusOK {
		t.Fatalf("auto-assign empty = %d", rec.Code)
	}
	var empty struct {
		Assigned bool `json:"assigned"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &empty)
	if empty.Assigned {
		t.Error("expected assigned=false with no candidates")
	}

	rec = f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/auto-assign", map[string]any{"candidates": []string{"coun-a", "coun-b"}}, "svc-1", authmw.RoleService)
	if rec.Code != http.StatusOK {
		t.Fatalf("auto-assign = %d", rec.Code)
	}
	var out struct {
		Assigned bool          `json:"assigned"`
		Case     casefile.Case `json:"case"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if !out.Assigned || out.Case.CounselorID != "coun-a" {
		t.Errorf("assigned=%v counselor=%q, want coun-a", out.Assigned, out.Case.CounselorID)
	}
}

func TestSOS(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	if rec := f.do(t, http.MethodPost, "/api/v1/alerts/sos", nil, "stu-1", authmw.RoleStudent); rec.Code != http.StatusBadRequest {
		t.Errorf("sos without contacts = %d, want 400", rec.Code)
	}

	f.contacts.Put("stu-1", []emergency.Contact{{Name: "Aunt", Phone: "+2348012345678"}})
	rec := f.do(t, http.MethodPost, "/api/v1/alerts/sos", map[string]any{"location": map[string]float64{"lat": 6.52, "lon": 3.37}}, "stu-1", authmw.RoleStudent)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sos = %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AlertID          string `json:"alertId"`
		ContactsNotified int    `json:"contactsNotified"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AlertID == "" || resp.ContactsNotified != 1 {
		t.Errorf("resp = %+v, want alertId and 1 contact", resp)
	}

	if rec := f.do(t, http.MethodPost, "/api/v1/alerts/sos", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusForbidden {
		t.Errorf("counselor sos = %d, want 403", rec.Code)
	}
}

func TestEscalateAndResolve(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.seedClaimedCase(t)
	path := "/api/v1/alerts/escalate/" + c.ID
	body := map[string]any{"reason": "urgent", "guardianPhones": []string{"+2348012345678"}}

	if rec := f.do(t, http.MethodPost, path, map[string]any{}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusBadRequest {
		t.Errorf("missing reason = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, path, body, "coun-2", authmw.RoleCounselor); rec.Code != http.StatusForbidden {
		t.Errorf("not owner = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/alerts/escalate/missing", body, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusNotFound {
		t.Errorf("missing case = %d, want 404", rec.Code)
	}

	rec := f.do(t, http.MethodPost, path, body, "coun-1", authmw.RoleCounselor)
	if rec.Code != http.StatusCreated {
		t.Fatalf("escalate = %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AlertID    string               `json:"alertId"`
		AlertsSent emergency.AlertsSent `json:"alertsSent"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.AlertsSent.SMS.Sent || resp.AlertsSent.Email.Sent {
		t.Errorf("alertsSent = %+v, want sms only", resp.AlertsSent)
	}

	resolvePath := "/api/v1/alerts/" + resp.AlertID + "/resolve"
	if rec := f.do(t, http.MethodPatch, resolvePath, nil, "coun-2", authmw.RoleCounselor); rec.Code != http.StatusForbidden {
		t.Errorf("resolve by non-owner = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, resolvePath, map[string]string{"resolutionNotes": "safe"}, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("resolve = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodPatch, resolvePath, nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusBadRequest {
		t.Errorf("resolve again = %d, want 400", rec.Code)
	}
}

func TestGetAlertVisibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.seedClaimedCase(t)

	rec := f.do(t, http.MethodPost, "/api/v1/alerts/escalate/"+c.ID, map[string]any{"reason": "urgent"}, "coun-1", authmw.RoleCounselor)
	var resp struct {
		AlertID string `json:"alertId"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	path := "/api/v1/alerts/" + resp.AlertID
	if rec := f.do(t, http.MethodGet, path, nil, "stu-1", authmw.RoleStudent); rec.Code != http.StatusOK {
		t.Errorf("student view = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, path, nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("counselor view = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, path, nil, "stu-other", authmw.RoleStudent); rec.Code != http.StatusForbidden {
		t.Errorf("stranger view = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, path, nil, "adm-1", authmw.RoleAdmin); rec.Code != http.StatusOK {
		t.Errorf("admin view = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/alerts/missing", nil, "adm-1", authmw.RoleAdmin); rec.Code != http.StatusNotFound {
		t.Errorf("missing alert = %d, want 404", rec.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedClaimedCase(t)

	if rec := f.do(t, http.MethodGet, "/api/v1/cases/unassigned", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("unassigned = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/cases/mine", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("mine = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/cases", nil, "adm-1", authmw.RoleAdmin); rec.Code != http.StatusOK {
		t.Errorf("list all = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/cases", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusForbidden {
		t.Errorf("counselor list all = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/counselors/workloads", nil, "coun-1", authmw.RoleCounselor); rec.Code != http.StatusOK {
		t.Errorf("workloads = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/counselors/coun-1/workload", nil, "adm-1", authmw.RoleAdmin); rec.Code != http.StatusOK {
		t.Errorf("workload = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/alerts", nil, "stu-1", authmw.RoleStudent); rec.Code != http.StatusOK {
		t.Errorf("active alerts = %d, want 200", rec.Code)
	}
}
