package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
)

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful login returns greeting, user, and landing view", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		user := testutil.TestUser()
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-1", User: user})
		f.stub.OnSuccess(http.MethodGet, "/orders/my-orders", []models.PentestOrder{})
		f.stub.OnSuccess(http.MethodGet, "/digital-assets/my-assets", []models.AcquiredDigitalAsset{})

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username": user.Username,
			"password": "hunter2",
		})
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		success, _, _ := parseEnvelope(t, rec)
		assert.True(t, success)

		var resp sessionResponse
		_, data, _ := parseEnvelope(t, rec)
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Contains(t, resp.Greeting, "Authentication Protocol Engaged. Welcome Operator "+user.Username)
		assert.NotNil(t, resp.User)
		assert.NotEmpty(t, resp.View)
		assert.True(t, f.console.Session.Authenticated())
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Invalid request body", msg)
	})

	t.Run("blank username returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "   ",
			"password": "hunter2",
		})
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Username is required", msg)
	})

	t.Run("backend rejection returns 401 with the console message", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.stub.OnFailure(http.MethodPost, "/auth/login", http.StatusUnauthorized, "bad credentials")

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "ghost",
			"password": "wrong",
		})
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusUnauthorized)
		success, _, msg := parseEnvelope(t, rec)
		assert.False(t, success)
		assert.NotEmpty(t, msg)
		assert.False(t, f.console.Session.Authenticated())
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("successful registration establishes the session", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		user := testutil.TestUser()
		f.stub.OnSuccess(http.MethodPost, "/auth/register", models.AuthResult{Token: "tok-reg", User: user})
		f.stub.OnSuccess(http.MethodGet, "/orders/my-orders", []models.PentestOrder{})
		f.stub.OnSuccess(http.MethodGet, "/digital-assets/my-assets", []models.AcquiredDigitalAsset{})

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": user.Username,
			"email":    user.Email,
			"password": "hunter2",
		})
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		var resp sessionResponse
		_, data, _ := parseEnvelope(t, rec)
		require.NoError(t, jsonUnmarshal(data, &resp))
		assert.Contains(t, resp.Greeting, "Operator ID Registered & Uplink Established")
		assert.True(t, f.console.Session.Authenticated())
	})

	t.Run("missing email returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "OperatorX",
			"password": "hunter2",
		})
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Username and email are required", msg)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("tears the session down and reports the teardown message", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.loginAs(t, testutil.TestUser())

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()

		handler.Logout(rec, req)

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Logout Sequence Complete. Secure Relay Deactivated. Session data purged from local terminal.", msg)
		assert.False(t, f.console.Session.Authenticated())
	})

	t.Run("succeeds even without a session", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		rec := httptest.NewRecorder()
		handler.Logout(rec, testutil.MakeRequest(t, http.MethodPost, "/api/auth/logout", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("unauthenticated returns 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		rec := httptest.NewRecorder()
		handler.Profile(rec, testutil.MakeRequest(t, http.MethodGet, "/api/user/profile", nil))

		testutil.AssertStatusCode(t, rec, http.StatusUnauthorized)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "No active session", msg)
	})

	t.Run("returns operator and relay state", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		user := testutil.TestUser()
		f.loginAs(t, user)

		rec := httptest.NewRecorder()
		handler.Profile(rec, testutil.MakeRequest(t, http.MethodGet, "/api/user/profile", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var profile struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
			RelayActive  bool   `json:"relayActive"`
			RelayAddress string `json:"relayAddress"`
		}
		require.NoError(t, jsonUnmarshal(data, &profile))
		assert.Equal(t, user.Username, profile.User.Username)
		assert.False(t, profile.RelayActive)
		assert.Empty(t, profile.RelayAddress)
	})
}

func TestAuthHandler_Relay(t *testing.T) {
	t.Run("activation requires a session", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		rec := httptest.NewRecorder()
		handler.ActivateRelay(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/relay/activate", nil))

		testutil.AssertStatusCode(t, rec, http.StatusUnauthorized)
	})

	t.Run("activation returns the generated relay address", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.loginAs(t, testutil.TestAdmin())

		rec := httptest.NewRecorder()
		handler.ActivateRelay(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/relay/activate", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, data, _ := parseEnvelope(t, rec)

		var relay struct {
			RelayActive  bool   `json:"relayActive"`
			RelayAddress string `json:"relayAddress"`
		}
		require.NoError(t, jsonUnmarshal(data, &relay))
		assert.True(t, relay.RelayActive)
		assert.Contains(t, relay.RelayAddress, "relay://")
		assert.True(t, f.console.Session.RelayActive())
	})

	t.Run("deactivation clears the relay", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.loginAs(t, testutil.TestAdmin())

		rec := httptest.NewRecorder()
		handler.ActivateRelay(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/relay/activate", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		rec = httptest.NewRecorder()
		handler.DeactivateRelay(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/relay/deactivate", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		assert.False(t, f.console.Session.RelayActive())
	})
}

func TestAuthHandler_Purge(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)

		rec := httptest.NewRecorder()
		handler.Purge(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/purge-my-data", nil))

		testutil.AssertStatusCode(t, rec, http.StatusUnauthorized)
	})

	t.Run("relays the backend confirmation", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.loginAs(t, testutil.TestUser())
		f.stub.OnSuccess(http.MethodPost, "/user/purge-my-data", map[string]string{"message": "All records erased."})

		rec := httptest.NewRecorder()
		handler.Purge(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/purge-my-data", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "All records erased.", msg)
	})

	t.Run("backend failure returns 502 with the purge error", func(t *testing.T) {
		f := newHandlerFixture(t)
		handler := NewAuthHandler(f.console)
		f.loginAs(t, testutil.TestUser())
		f.stub.OnFailure(http.MethodPost, "/user/purge-my-data", http.StatusBadGateway, "purge rejected")

		rec := httptest.NewRecorder()
		handler.Purge(rec, testutil.MakeRequest(t, http.MethodPost, "/api/user/purge-my-data", nil))

		testutil.AssertStatusCode(t, rec, http.StatusBadGateway)
		_, _, msg := parseEnvelope(t, rec)
		assert.Equal(t, "Data purge failed: purge rejected", msg)
	})
}
