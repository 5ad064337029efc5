package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"incaweb/internal/domain/auth"
)

type stubSessions struct {
	identity *auth.Identity
	ready    bool
}

func (s *stubSessions) Current() *auth.Identity { return s.identity }
func (s *stubSessions) Ready() bool             { return s.ready }

func TestRequireSessionRedirectsWhenLoggedOut(t *testing.T) {
	tests := []struct {
		name     string
		sessions *stubSessions
		wantCode int
	}{
		{"not ready", &stubSessions{ready: false}, http.StatusSeeOther},
		{"ready but logged out", &stubSessions{ready: true}, http.StatusSeeOther},
		{"logged in", &stubSessions{ready: true, identity: &auth.Identity{Username: "admin", Role: auth.RoleAdmin}}, http.StatusOK},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			RequireSession(tt.sessions)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, expected %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusSeeOther && rec.Header().Get("Location") != "/login" {
				t.Errorf("redirect location = %q", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequestIDGeneratedAndPropagated(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	RequestID(next).ServeHTTP(rec, req)

	if seen == "" {
		t.Error("no request id in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response header does not match the context id")
	}
}

func TestRequestIDHonorsCallerSupplied(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	RequestID(next).ServeHTTP(rec, req)

	if seen != "trace-42" {
		t.Errorf("request id = %q, expected the supplied one", seen)
	}
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Recoverer(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
