package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{
			name:        "listed origin",
			allowed:     []string{"https://book.clinic.example/"},
			method:      http.MethodGet,
			origin:      "https://book.clinic.example",
			wantOrigin:  "https://book.clinic.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "unknown origin",
			allowed:     []string{"https://book.clinic.example"},
			method:      http.MethodPatch,
			origin:      "https://evil.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "wildcard echoes origin",
			allowed:     []string{" * "},
			method:      http.MethodPost,
			origin:      "https://partner.example",
			wantOrigin:  "https://partner.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:       "preflight short circuits",
			allowed:    []string{"https://book.clinic.example"},
			method:     http.MethodOptions,
			origin:     "https://book.clinic.example",
			preflight:  true,
			wantOrigin: "https://book.clinic.example",
			wantStatus: http.StatusNoContent,
		},
		{
			name:        "preflight from unknown origin reaches router",
			allowed:     []string{"https://book.clinic.example"},
			method:      http.MethodOptions,
			origin:      "https://evil.example",
			preflight:   true,
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/booking/form", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantHandler, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Values("Vary"), "Origin")
			if tt.wantOrigin != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
			if tt.preflight && tt.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
			}
		})
	}
}
