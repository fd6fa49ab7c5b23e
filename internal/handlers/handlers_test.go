package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// handlerFixture wires a real console against a stubbed backend so the
// handlers are tested through the same composition main uses.
type handlerFixture struct {
	console *services.Console
	stub    *testutil.BackendStub
}

// settle waits out the short view transition window configured below.
func (f *handlerFixture) settle() {
	time.Sleep(25 * time.Millisecond)
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	stub := testutil.NewBackendStub(t)
	mr, cleanup := testutil.SetupMiniRedis(t)
	t.Cleanup(cleanup)
	store := testutil.NewTestStore(t, mr)

	cfg := &config.Config{
		AI: config.AIConfig{
			DefaultProvider:  models.ProviderGemini,
			LocalLlmBaseURL:  "http://localhost:11434",
			LocalLlmModel:    "llama3:latest",
			HuggingFaceModel: "mistralai/Mistral-7B-Instruct-v0.1",
		},
		Console: config.ConsoleConfig{
			ViewTransition:     time.Millisecond,
			ThreatFeedMax:      50,
			ThreatFeedInterval: time.Hour,
			ThreatFeedJitter:   0,
		},
	}

	var console *services.Console
	client := api.NewClient(stub.ClientConfig(), api.TokenFunc(func() string {
		if console == nil {
			return ""
		}
		return console.Session.CurrentToken()
	}))
	console = services.NewConsole(cfg, client, store, services.NewScheduler(), nil)

	stub.OnSuccess(http.MethodGet, "/products", []models.Product{})

	return &handlerFixture{console: console, stub: stub}
}

// loginAs establishes an authenticated session through the console itself.
func (f *handlerFixture) loginAs(t *testing.T, user *models.User) {
	t.Helper()

	f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-" + user.ID, User: user})
	f.stub.OnSuccess(http.MethodGet, "/orders/my-orders", []models.PentestOrder{})
	f.stub.OnSuccess(http.MethodGet, "/digital-assets/my-assets", []models.AcquiredDigitalAsset{})

	_, err := f.console.Login(context.Background(), user.Username, "hunter2")
	require.NoError(t, err)
	f.settle()
}

// withURLParam attaches a chi route parameter to the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonUnmarshal decodes an envelope data payload into a typed view.
func jsonUnmarshal(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}

// parseEnvelope decodes an envelope response and returns its raw data field.
func parseEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (bool, json.RawMessage, string) {
	t.Helper()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	testutil.ParseJSONResponse(t, rec, &env)
	return env.Success, env.Data, env.Message
}
