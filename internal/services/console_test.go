package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/testutil"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

type consoleFixture struct {
	console *Console
	stub    *testutil.BackendStub
	sched   *manualScheduler
}

// settle drains any in-flight view transition chain.
func (f *consoleFixture) settle() {
	f.sched.Advance(10 * testLock)
}

func newTestConsole(t *testing.T) *consoleFixture {
	t.Helper()

	stub := testutil.NewBackendStub(t)
	mr, cleanup := testutil.SetupMiniRedis(t)
	t.Cleanup(cleanup)
	store := testutil.NewTestStore(t, mr)
	sched := newManualScheduler()

	cfg := &config.Config{
		AI: config.AIConfig{
			DefaultProvider:  models.ProviderGemini,
			LocalLlmBaseURL:  "http://localhost:11434",
			LocalLlmModel:    "llama3:latest",
			HuggingFaceModel: "mistralai/Mistral-7B-Instruct-v0.1",
		},
		Console: config.ConsoleConfig{
			ViewTransition:     testLock,
			ThreatFeedMax:      50,
			ThreatFeedInterval: 6 * time.Second,
			ThreatFeedJitter:   4 * time.Second,
		},
	}

	var console *Console
	client := api.NewClient(stub.ClientConfig(), api.TokenFunc(func() string {
		if console == nil {
			return ""
		}
		return console.Session.CurrentToken()
	}))
	console = NewConsole(cfg, client, store, sched, nil)

	// Most flows assume the catalog endpoint answers.
	stub.OnSuccess(http.MethodGet, "/products", []models.Product{})

	return &consoleFixture{console: console, stub: stub, sched: sched}
}

func stubUserData(stub *testutil.BackendStub) {
	stub.OnSuccess(http.MethodGet, "/orders/my-orders", []models.PentestOrder{})
	stub.OnSuccess(http.MethodGet, "/digital-assets/my-assets", []models.AcquiredDigitalAsset{})
}

func TestConsole_Login(t *testing.T) {
	t.Run("standard operator gets the standard greeting", func(t *testing.T) {
		f := newTestConsole(t)
		user := testutil.TestUser()
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-1", User: user})
		stubUserData(f.stub)

		greeting, err := f.console.Login(context.Background(), user.Username, "hunter2")
		require.NoError(t, err)
		assert.Equal(t,
			fmt.Sprintf("Authentication Protocol Engaged. Welcome Operator %s. Standard access to Projekt Ckryptbit systems granted.", user.Username),
			greeting)

		assert.True(t, f.console.Session.Authenticated())
		assert.True(t, f.console.Threats.Running())
		assert.Contains(t, f.console.Alerts(), greeting)

		f.settle()
		assert.Equal(t, models.ViewShop, f.console.Views.Current())
	})

	t.Run("admin operator gets the clearance greeting and dashboard redirect", func(t *testing.T) {
		f := newTestConsole(t)
		admin := testutil.TestAdmin()
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-admin", User: admin})
		stubUserData(f.stub)

		greeting, err := f.console.Login(context.Background(), admin.Username, "hunter2")
		require.NoError(t, err)
		assert.Contains(t, greeting, "ADMIN CLEARANCE GRANTED. Secure Relay protocol recommended")

		// The relay starts inactive, so the dashboard guard redirects.
		f.settle()
		assert.Equal(t, models.ViewUserProfile, f.console.Views.Current())
		assert.Contains(t, f.console.Alerts(), relayRequiredAlert)
	})

	t.Run("backend rejection surfaces the backend message", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.OnFailure(http.MethodPost, "/auth/login", http.StatusUnauthorized, "bad credentials")

		_, err := f.console.Login(context.Background(), "ghost", "wrong")
		require.Error(t, err)
		assert.False(t, f.console.Session.Authenticated())
		assert.False(t, f.console.Threats.Running())
	})

	t.Run("a result without a token falls back to the generic failure", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{User: testutil.TestUser()})

		_, err := f.console.Login(context.Background(), "x", "y")
		require.Error(t, err)
		assert.Equal(t, "Login sequence failed. Check uplink and credentials.", err.Error())
	})

	t.Run("login clears the accumulated error log", func(t *testing.T) {
		f := newTestConsole(t)
		f.console.AppendError("stale failure")
		f.stub.OnFailure(http.MethodPost, "/auth/login", http.StatusUnauthorized, "bad credentials")

		_, _ = f.console.Login(context.Background(), "x", "y")
		assert.Empty(t, f.console.ErrorLog())
	})
}

func TestConsole_Register(t *testing.T) {
	f := newTestConsole(t)
	user := testutil.TestUser()
	f.stub.OnSuccess(http.MethodPost, "/auth/register", models.AuthResult{Token: "tok-new", User: user})
	stubUserData(f.stub)

	greeting, err := f.console.Register(context.Background(), user.Username, user.Email, "hunter2")
	require.NoError(t, err)
	assert.Equal(t,
		fmt.Sprintf("Operator ID Registered & Uplink Established. Welcome, %s. Standard access protocols active.", user.Username),
		greeting)
	assert.True(t, f.console.Session.Authenticated())
}

func TestConsole_Logout(t *testing.T) {
	f := newTestConsole(t)
	user := testutil.TestUser()
	f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-1", User: user})
	stubUserData(f.stub)

	_, err := f.console.Login(context.Background(), user.Username, "hunter2")
	require.NoError(t, err)
	f.settle()

	f.console.Catalog.AddToCart(testutil.TestProduct("Exploit Kit"), 1)
	f.console.Chat.ReconcileWelcome()
	f.console.AppendError("some failure")

	msg := f.console.Logout(context.Background())
	assert.Equal(t, "Logout Sequence Complete. Secure Relay Deactivated. Session data purged from local terminal.", msg)

	assert.False(t, f.console.Session.Authenticated())
	assert.Empty(t, f.console.Catalog.Cart())
	assert.Empty(t, f.console.Orders.Orders())
	assert.False(t, f.console.Threats.Running())
	assert.Empty(t, f.console.ErrorLog())
	assert.NotEmpty(t, f.console.Chat.Messages(), "the chat transcript survives logout")

	f.settle()
	assert.Equal(t, models.ViewLanding, f.console.Views.Current())
}

func TestConsole_Purge(t *testing.T) {
	t.Run("success clears local collections and refetches the catalog", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.On(http.MethodPost, "/user/purge-my-data", http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"message": "All records erased."},
		})

		f.console.Catalog.AddToCart(testutil.TestProduct("Exploit Kit"), 1)
		fetchesBefore := f.stub.CallCount(http.MethodGet, "/products")

		msg, err := f.console.Purge(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "All records erased.", msg)
		assert.Empty(t, f.console.Catalog.Cart())
		assert.Equal(t, fetchesBefore+1, f.stub.CallCount(http.MethodGet, "/products"))
	})

	t.Run("an empty backend message falls back to the default", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.OnSuccess(http.MethodPost, "/user/purge-my-data", map[string]string{})

		msg, err := f.console.Purge(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Operator data successfully purged from backend systems. Local cache cleared.", msg)
	})

	t.Run("backend failure leaves local state untouched", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.OnFailure(http.MethodPost, "/user/purge-my-data", http.StatusBadGateway, "purge rejected")

		f.console.Catalog.AddToCart(testutil.TestProduct("Exploit Kit"), 1)

		_, err := f.console.Purge(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Data purge failed: purge rejected", err.Error())
		assert.Len(t, f.console.Catalog.Cart(), 1)
	})

	t.Run("a rejected token expires the session", func(t *testing.T) {
		f := newTestConsole(t)
		user := testutil.TestUser()
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-1", User: user})
		stubUserData(f.stub)
		_, err := f.console.Login(context.Background(), user.Username, "hunter2")
		require.NoError(t, err)
		f.settle()

		f.stub.OnFailure(http.MethodPost, "/user/purge-my-data", http.StatusUnauthorized, "token expired")

		_, err = f.console.Purge(context.Background())
		require.Error(t, err)
		assert.False(t, f.console.Session.Authenticated())
		assert.Contains(t, f.console.Alerts(), "Authentication Anomaly Detected. Re-authenticate.")

		f.settle()
		assert.Equal(t, models.ViewLogin, f.console.Views.Current())
	})
}

func TestConsole_Checkout(t *testing.T) {
	login := func(t *testing.T, f *consoleFixture) {
		user := testutil.TestUser()
		f.stub.OnSuccess(http.MethodPost, "/auth/login", models.AuthResult{Token: "tok-1", User: user})
		stubUserData(f.stub)
		_, err := f.console.Login(context.Background(), user.Username, "hunter2")
		require.NoError(t, err)
		f.settle()
	}

	t.Run("unauthenticated checkout redirects to login", func(t *testing.T) {
		f := newTestConsole(t)
		f.console.Catalog.AddToCart(testutil.TestProduct("Exploit Kit"), 1)

		_, err := f.console.Checkout(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Authentication Anomaly Detected. Re-authenticate.", err.Error())
		assert.Contains(t, f.console.Alerts(), "Authentication Anomaly Detected. Re-authenticate.")

		f.settle()
		assert.Equal(t, models.ViewLogin, f.console.Views.Current())
	})

	t.Run("a pending target prompt suppresses navigation", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)
		viewBefore := f.console.Views.Current()

		f.stub.OnSuccess(http.MethodPost, "/checkout", models.CheckoutResult{
			NewOrders: []models.PentestOrder{testutil.TestOrder("u-1", models.StatusAwaitingTargetInfo)},
		})
		f.console.Catalog.AddToCart(testutil.TestServiceProduct("Pentest"), 1)

		result, err := f.console.Checkout(context.Background())
		require.NoError(t, err)
		assert.Len(t, result.NewOrders, 1)
		require.NotNil(t, f.console.Orders.PendingTargetOrder())

		f.settle()
		assert.Equal(t, viewBefore, f.console.Views.Current(), "the prompt takes priority over navigation")
	})

	t.Run("new orders without a prompt navigate to the order tracker", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)

		f.stub.OnSuccess(http.MethodPost, "/checkout", models.CheckoutResult{
			NewOrders: []models.PentestOrder{testutil.TestOrder("u-1", models.StatusProcessingRequest)},
		})
		f.console.Catalog.AddToCart(testutil.TestServiceProduct("Pentest"), 1)

		_, err := f.console.Checkout(context.Background())
		require.NoError(t, err)

		f.settle()
		assert.Equal(t, models.ViewPentestOrders, f.console.Views.Current())
	})

	t.Run("asset-only acquisitions navigate to the intel vault", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)

		f.stub.OnSuccess(http.MethodPost, "/checkout", models.CheckoutResult{
			NewDigitalAssets: []models.AcquiredDigitalAsset{testutil.TestAsset("u-1")},
		})
		f.console.Catalog.AddToCart(testutil.TestDigitalProduct("Intel Digest"), 1)

		_, err := f.console.Checkout(context.Background())
		require.NoError(t, err)

		f.settle()
		assert.Equal(t, models.ViewMyDigitalAssets, f.console.Views.Current())
	})

	t.Run("the acquisition alert reports both counts", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)

		f.stub.OnSuccess(http.MethodPost, "/checkout", models.CheckoutResult{
			NewOrders:        []models.PentestOrder{testutil.TestOrder("u-1", models.StatusProcessingRequest)},
			NewDigitalAssets: []models.AcquiredDigitalAsset{testutil.TestAsset("u-1"), testutil.TestAsset("u-1")},
		})
		f.console.Catalog.AddToCart(testutil.TestProduct("Bundle"), 1)

		_, err := f.console.Checkout(context.Background())
		require.NoError(t, err)
		assert.Contains(t, f.console.Alerts(),
			"Acquisition protocol successful. 1 new service dockets. 2 new intel packets acquired. Your IP has been logged for security audit.")
	})

	t.Run("empty carrier passes the sentinel through", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)

		_, err := f.console.Checkout(context.Background())
		assert.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("a rejected token expires the session", func(t *testing.T) {
		f := newTestConsole(t)
		login(t, f)

		f.stub.OnFailure(http.MethodPost, "/checkout", http.StatusUnauthorized, "token expired")
		f.console.Catalog.AddToCart(testutil.TestProduct("Exploit Kit"), 1)

		_, err := f.console.Checkout(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrUnauthorized)

		assert.False(t, f.console.Session.Authenticated())
		assert.False(t, f.console.Threats.Running())
		assert.Contains(t, f.console.Alerts(), "Authentication Anomaly Detected. Re-authenticate.")

		f.settle()
		assert.Equal(t, models.ViewLogin, f.console.Views.Current())
	})
}

func TestConsole_Init(t *testing.T) {
	t.Run("a persisted session restores collections and starts the feed", func(t *testing.T) {
		f := newTestConsole(t)
		mrStoreSeed(t, f)
		stubUserData(f.stub)

		require.NoError(t, f.console.Init(context.Background()))
		assert.True(t, f.console.Session.Authenticated())
		assert.True(t, f.console.Threats.Running())

		f.settle()
		assert.Equal(t, models.ViewShop, f.console.Views.Current())
	})

	t.Run("no persisted session stays on landing", func(t *testing.T) {
		f := newTestConsole(t)

		require.NoError(t, f.console.Init(context.Background()))
		assert.False(t, f.console.Session.Authenticated())
		assert.False(t, f.console.Threats.Running())
		assert.Equal(t, models.ViewLanding, f.console.Views.Current())
	})

	t.Run("catalog failure does not abort startup", func(t *testing.T) {
		f := newTestConsole(t)
		f.stub.OnFailure(http.MethodGet, "/products", http.StatusBadGateway, "manifest down")

		require.NoError(t, f.console.Init(context.Background()))
		assert.Contains(t, f.console.ErrorLog(), "Failed to load product manifest")
	})
}

// mrStoreSeed persists a standard operator session through the console's own
// session service.
func mrStoreSeed(t *testing.T, f *consoleFixture) {
	t.Helper()
	f.console.Session.Establish(context.Background(), "persisted-token", testutil.TestUser())
	// Reset the in-memory side so Init proves restoration from the store.
	f.console.Session.mu.Lock()
	f.console.Session.session = models.Session{}
	f.console.Session.claims = nil
	f.console.Session.mu.Unlock()
}

func TestConsole_ErrorLog(t *testing.T) {
	f := newTestConsole(t)

	f.console.AppendError("first failure")
	f.console.AppendError("second failure")
	assert.Equal(t, "first failure\nsecond failure", f.console.ErrorLog())

	f.console.ClearErrors()
	assert.Empty(t, f.console.ErrorLog())
}

func TestConsole_Alerts(t *testing.T) {
	t.Run("backlog is bounded oldest first", func(t *testing.T) {
		f := newTestConsole(t)

		for i := 0; i < maxAlerts+5; i++ {
			f.console.Alert(fmt.Sprintf("alert %d", i))
		}

		alerts := f.console.Alerts()
		require.Len(t, alerts, maxAlerts)
		assert.Equal(t, "alert 5", alerts[0], "oldest entries fall off first")
		assert.Equal(t, fmt.Sprintf("alert %d", maxAlerts+4), alerts[len(alerts)-1])
	})

	t.Run("clear drops the backlog", func(t *testing.T) {
		f := newTestConsole(t)
		f.console.Alert("notice")
		f.console.ClearAlerts()
		assert.Empty(t, f.console.Alerts())
	})
}

func TestConsole_WelcomeOnAiViewEntry(t *testing.T) {
	f := newTestConsole(t)

	f.console.Views.Navigate(models.ViewChat)
	f.settle()

	messages := f.console.Chat.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsWelcome)

	// Re-entering the same family of views does not duplicate the welcome.
	f.console.Views.Navigate(models.ViewArchitect)
	f.settle()
	assert.Len(t, f.console.Chat.Messages(), 1)
}
