package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerToken_Valid(t *testing.T) {
	t.Parallel()

	h := BearerToken("secret")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestBearerToken_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic c2VjcmV0"},
		{"wrong token", "Bearer nope"},
		{"empty token", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := BearerToken("secret")(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestExtractIdentity_SetsContext(t *testing.T) {
	t.Parallel()

	var got Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	h := ExtractIdentity()(inner)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderRole, RoleCounselor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
	}
	if got.Role != RoleCounselor {
		t.Errorf("Role = %q, want %q", got.Role, RoleCounselor)
	}
}

func TestExtractIdentity_MissingHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		userID, role string
	}{
		{"no headers", "", ""},
		{"missing role", "user-1", ""},
		{"missing user id", "", RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := ExtractIdentity()(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.userID != "" {
				req.Header.Set(HeaderUserID, tt.userID)
			}
			if tt.role != "" {
				req.Header.Set(HeaderRole, tt.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    string
		allowed []string
		want    int
	}{
		{"counselor allowed", RoleCounselor, []string{RoleCounselor}, http.StatusOK},
		{"student rejected", RoleStudent, []string{RoleCounselor}, http.StatusForbidden},
		{"multiple roles", RoleAdmin, []string{RoleCounselor, RoleAdmin}, http.StatusOK},
		{"service rejected from counselor route", RoleService, []string{RoleCounselor}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := RequireRole(tt.allowed...)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u", Role: tt.role}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	t.Parallel()

	h := RequireRole(RoleCounselor)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
