package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/edvin/drfailover/internal/config"
)

func TestServer_Routes(t *testing.T) {
	s := NewServer(zerolog.Nop(), &temporalmocks.Client{}, &config.Config{TemporalTaskQueue: "dr-failover"})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/failover", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
