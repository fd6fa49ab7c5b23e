package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
)

func TestHealth(t *testing.T) {
	t.Run("returns 200 OK with correct structure", func(t *testing.T) {
		// Health() never touches its dependencies
		handler := &HealthHandler{}

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.Health(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response HealthResponse
		err := json.Unmarshal(rec.Body.Bytes(), &response)
		require.NoError(t, err)

		assert.Equal(t, "ok", response.Status)
		assert.False(t, response.Timestamp.IsZero())
		assert.Nil(t, response.Services) // Health doesn't check services
	})

	t.Run("includes correct content-type header", func(t *testing.T) {
		handler := &HealthHandler{}
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.Health(rec, req)

		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestReady(t *testing.T) {
	t.Run("all services healthy returns 200 OK", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)
		backend := testutil.NewBackendStub(t)
		backend.On(http.MethodHead, "/", http.StatusOK, nil)

		handler := NewHealthHandler(store, backend.Server.URL)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()

		handler.Ready(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, "healthy", response.Services["redis"])
		assert.Equal(t, "healthy", response.Services["backend"])
	})

	t.Run("unreachable store returns 503 degraded", func(t *testing.T) {
		mr, _ := testutil.SetupMiniRedis(t)
		store := testutil.NewTestStore(t, mr)
		backend := testutil.NewBackendStub(t)
		backend.On(http.MethodHead, "/", http.StatusOK, nil)
		mr.Close()

		handler := NewHealthHandler(store, backend.Server.URL)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()

		handler.Ready(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "unhealthy", response.Services["redis"])
	})

	t.Run("unreachable backend returns 503 degraded", func(t *testing.T) {
		mr, cleanup := testutil.SetupMiniRedis(t)
		defer cleanup()
		store := testutil.NewTestStore(t, mr)

		// Nothing listens on this address
		handler := NewHealthHandler(store, "http://127.0.0.1:1")

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()

		handler.Ready(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "healthy", response.Services["redis"])
		assert.Equal(t, "unhealthy", response.Services["backend"])
	})
}

func TestHealthResponse_JSONSerialization(t *testing.T) {
	t.Run("serializes all fields correctly", func(t *testing.T) {
		handler := &HealthHandler{}
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.Health(rec, req)

		var response map[string]interface{}
		err := json.Unmarshal(rec.Body.Bytes(), &response)
		require.NoError(t, err)

		assert.Equal(t, "ok", response["status"])
		assert.NotNil(t, response["timestamp"])
	})
}

func BenchmarkHealth(b *testing.B) {
	handler := &HealthHandler{}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.Health(rec, req)
	}
}
