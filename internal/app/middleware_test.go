package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-pricing/internal/shared"
)

func TestActorMiddlewarePopulatesContext(t *testing.T) {
	var got shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", " user-7 ")
	req.Header.Set("X-Actor-Name", "Dana")
	ActorMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-7", got.ID)
	assert.Equal(t, "Dana", got.Name)
}

func TestActorMiddlewareWithoutHeaders(t *testing.T) {
	var got shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ActorFromContext(r.Context())
	})

	ActorMiddleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, got.ID)
}

func TestRequireAdminToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireAdminToken(string(hash))(next)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer s3cret", http.StatusNoContent},
		{"case insensitive scheme", "bearer s3cret", http.StatusNoContent},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/overrides", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
