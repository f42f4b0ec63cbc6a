package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantVary    bool
		wantMethods string
	}{
		{
			name:        "configured origin",
			allowed:     []string{" https://kqsx.example.vn ", ""},
			method:      http.MethodGet,
			origin:      "https://kqsx.example.vn",
			wantStatus:  http.StatusOK,
			wantOrigin:  "https://kqsx.example.vn",
			wantVary:    true,
			wantMethods: "GET,OPTIONS",
		},
		{
			name:        "wildcard preflight",
			allowed:     []string{"*"},
			method:      http.MethodOptions,
			origin:      "https://kqsx.example.vn",
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantMethods: "GET,OPTIONS",
		},
		{
			name:       "unconfigured origin",
			allowed:    []string{"https://allowed.example.com"},
			method:     http.MethodGet,
			origin:     "https://not-allowed.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unconfigured preflight gets no grant",
			allowed:    []string{"https://allowed.example.com"},
			method:     http.MethodOptions,
			origin:     "https://not-allowed.example.com",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "same origin request",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, "/v1/kqsx/summary?region=mn", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			CORS(tt.allowed, next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Fatalf("Access-Control-Allow-Methods = %q, want %q", got, tt.wantMethods)
			}
			if got := rec.Header().Get("Vary") == "Origin"; got != tt.wantVary {
				t.Fatalf("Vary: Origin present = %v, want %v", got, tt.wantVary)
			}
		})
	}
}
