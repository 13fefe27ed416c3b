package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/StreetCred/SC-Backend/internal/middleware"
)

// call wraps a simple 200-OK inner handler in mw and serves req.
func call(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

// TestCORS_AllowedOrigin verifies an allow-listed origin is echoed back.
func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:5173/"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := call(t, mw, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestCORS_UnknownOrigin verifies other origins get no allow header.
func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := call(t, mw, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

// TestCORS_Preflight verifies OPTIONS short-circuits with 204.
func TestCORS_Preflight(t *testing.T) {
	mw := middleware.CORS(nil)

	rec := call(t, mw, httptest.NewRequest(http.MethodOptions, "/verify", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing token: %v", err)
	}
	return string(h)
}

// TestAdminToken covers the accepted header forms and the refusals.
func TestAdminToken(t *testing.T) {
	mw := middleware.AdminToken(hashToken(t, "s3cret"), zap.NewNop())

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"x-admin-token", "X-Admin-Token", "s3cret", http.StatusOK},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK},
		{"bearer lowercase", "Authorization", "bearer s3cret", http.StatusOK},
		{"wrong token", "X-Admin-Token", "guess", http.StatusUnauthorized},
		{"basic auth", "Authorization", "Basic s3cret", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/check-milestones/u1", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := call(t, mw, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

// TestAdminToken_Disabled verifies that no configured hash locks the door.
func TestAdminToken_Disabled(t *testing.T) {
	mw := middleware.AdminToken("", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/check-milestones/u1", nil)
	req.Header.Set("X-Admin-Token", "anything")
	rec := call(t, mw, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("expected body to mention disabled, got %q", rec.Body.String())
	}
}

// TestRateLimiter_PerClient verifies the burst is enforced per IP.
func TestRateLimiter_PerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.RemoteAddr = ip + ":5555"
		return call(t, rl.Handler, req).Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("another client should not be limited, got %d", code)
	}
}

// TestRateLimiter_Disabled verifies a zero rate passes everything through.
func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(0, 1)
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		if code := call(t, rl.Handler, req).Code; code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}
}

// TestRequestLogger verifies the wrapped handler's status passes through.
func TestRequestLogger(t *testing.T) {
	mw := middleware.RequestLogger(zap.NewNop())
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
