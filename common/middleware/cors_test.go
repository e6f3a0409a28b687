package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		origins     []string
		origin      string
		method      string
		wantAllowed string
		wantStatus  int
	}{
		{
			name:        "exact origin allowed",
			origins:     []string{"http://localhost:5173"},
			origin:      "http://localhost:5173",
			method:      http.MethodGet,
			wantAllowed: "http://localhost:5173",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "wildcard subdomain allowed",
			origins:     []string{"*.example.com"},
			origin:      "https://ops.example.com",
			method:      http.MethodGet,
			wantAllowed: "https://ops.example.com",
			wantStatus:  http.StatusOK,
		},
		{
			name:       "unknown origin gets no allow header",
			origins:    []string{"http://localhost:5173"},
			origin:     "http://evil.test",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:        "preflight short-circuits",
			origins:     []string{"*"},
			origin:      "http://any.test",
			method:      http.MethodOptions,
			wantAllowed: "http://any.test",
			wantStatus:  http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(DefaultCORSConfig(tt.origins))(next)
			req := httptest.NewRequest(tt.method, "/runs", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowed, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		})
	}
}
