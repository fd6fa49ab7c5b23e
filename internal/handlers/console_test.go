package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
)

func TestConsoleHandler_View(t *testing.T) {
	t.Run("reports the landing view on a fresh console", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)

		rec := httptest.NewRecorder()
		handler.CurrentView(rec, testutil.MakeRequest(t, http.MethodGet, "/api/view", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var resp viewResponse
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Equal(t, string(models.ViewLanding), resp.View)
		assert.False(t, resp.Transitioning)
	})

	t.Run("navigate rejects an unknown view id", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)

		rec := httptest.NewRecorder()
		handler.Navigate(rec, testutil.MakeRequest(t, http.MethodPost, "/api/view/navigate", map[string]string{
			"view": "holodeck",
		}))

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Unknown view id", msg)
	})

	t.Run("navigate starts a transition and lands after the lock window", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)

		rec := httptest.NewRecorder()
		handler.Navigate(rec, testutil.MakeRequest(t, http.MethodPost, "/api/view/navigate", navigateRequest{
			View: models.ViewChat,
		}))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		f.settle()

		rec = httptest.NewRecorder()
		handler.CurrentView(rec, testutil.MakeRequest(t, http.MethodGet, "/api/view", nil))
		_, data, _ := parseEnvelope(t, rec)

		var resp viewResponse
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Equal(t, string(models.ViewChat), resp.View)
	})
}

func TestConsoleHandler_ThreatFeed(t *testing.T) {
	t.Run("returns the feed and its running state", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)
		f.console.Threats.Start()
		t.Cleanup(f.console.Threats.Stop)

		rec := httptest.NewRecorder()
		handler.ThreatEvents(rec, testutil.MakeRequest(t, http.MethodGet, "/api/threat-feed", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var resp struct {
			Events  []models.ThreatIntelEvent `json:"events"`
			Running bool                      `json:"running"`
		}
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.True(t, resp.Running)
		require.NotEmpty(t, resp.Events)
		assert.NotEmpty(t, resp.Events[0].Message)
	})

	t.Run("clear empties the feed but keeps it running", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)
		f.console.Threats.Start()
		t.Cleanup(f.console.Threats.Stop)

		rec := httptest.NewRecorder()
		handler.ClearThreatEvents(rec, testutil.MakeRequest(t, http.MethodDelete, "/api/threat-feed", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		assert.Empty(t, f.console.Threats.Events())
		assert.True(t, f.console.Threats.Running())
	})
}

func TestConsoleHandler_Logs(t *testing.T) {
	t.Run("returns and clears the error log", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)
		f.console.AppendError("uplink desynchronized")

		rec := httptest.NewRecorder()
		handler.Errors(rec, testutil.MakeRequest(t, http.MethodGet, "/api/errors", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var resp struct {
			ErrorLog string `json:"errorLog"`
		}
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Contains(t, resp.ErrorLog, "uplink desynchronized")

		rec = httptest.NewRecorder()
		handler.ClearErrors(rec, testutil.MakeRequest(t, http.MethodDelete, "/api/errors", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)
		assert.Empty(t, f.console.ErrorLog())
	})

	t.Run("returns and clears pending alerts", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewConsoleHandler(f.console)
		f.console.Alert("Intrusion countermeasures active")

		rec := httptest.NewRecorder()
		handler.Alerts(rec, testutil.MakeRequest(t, http.MethodGet, "/api/alerts", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var resp struct {
			Alerts []string `json:"alerts"`
		}
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Equal(t, []string{"Intrusion countermeasures active"}, resp.Alerts)

		rec = httptest.NewRecorder()
		handler.ClearAlerts(rec, testutil.MakeRequest(t, http.MethodDelete, "/api/alerts", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)
		assert.Empty(t, f.console.Alerts())
	})
}
