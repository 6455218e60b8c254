package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/fabricplan/internal/utils"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		w.Header().Set("X-Sub", claims["sub"].(string))
	}
	w.WriteHeader(http.StatusNoContent)
}

func TestAuth(t *testing.T) {
	secret := "s3cret"
	token, err := utils.GenerateServiceToken("ui", utils.RolePlanner, time.Hour, secret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"disabled without secret", "", "", http.StatusNoContent},
		{"missing header", secret, "", http.StatusUnauthorized},
		{"wrong scheme", secret, "Basic abc", http.StatusUnauthorized},
		{"bad token", secret, "Bearer nope", http.StatusUnauthorized},
		{"valid token", secret, "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.secret)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuth_ClaimsInContext(t *testing.T) {
	token, err := utils.GenerateServiceToken("planctl", utils.RoleOperator, time.Hour, "k")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/plans/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth("k")(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	assert.Equal(t, "planctl", rec.Header().Get("X-Sub"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestCaseInsensitiveAPI(t *testing.T) {
	var path string
	h := CaseInsensitiveAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/API/Plans/7", nil))
	assert.Equal(t, "/api/plans/7", path)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/API/FABRIC-TYPES/F1", nil))
	assert.Equal(t, "/api/fabric-types/F1", path)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Api/Status", nil))
	assert.Equal(t, "/api/status", path)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Static/App.JS", nil))
	assert.Equal(t, "/Static/App.JS", path)
}
