package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/database"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	ckcache "github.com/Krypt-Cyber/ckryptbit.xyz/pkg/cache"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// maxAlerts bounds the retained operator alert backlog.
const maxAlerts = 20

// Console is the root orchestrator. It composes the per-concern services
// and owns the cross-cutting flows that touch several of them at once:
// login, register, logout, purge, checkout, and startup restoration.
//
// It is also the ErrorSink the services report into; the error log
// accumulates newline-joined and is only cleared explicitly.
type Console struct {
	client *api.Client
	store  *database.TerminalStore

	Session *SessionService
	Catalog *CatalogService
	Orders  *OrdersService
	Chat    *ChatService
	Views   *ViewController
	Threats *ThreatFeedService

	mu       sync.Mutex
	errorLog string
	alerts   []string
}

// NewConsole wires the full service graph. The catalog cache may be nil to
// disable catalog caching.
func NewConsole(cfg *config.Config, client *api.Client, store *database.TerminalStore, sched Scheduler, catalogCache *ckcache.Cache) *Console {
	c := &Console{
		client: client,
		store:  store,
	}
	c.Session = NewSessionService(store)
	c.Catalog = NewCatalogService(client, c, catalogCache, cfg.Cache.CatalogTTL)
	c.Orders = NewOrdersService(client, c)
	c.Chat = NewChatService(client, &cfg.AI)
	c.Threats = NewThreatFeedService(sched, &cfg.Console)
	c.Views = NewViewController(sched, c.Session, cfg.Console.ViewTransition, c.Alert)
	c.Views.SetOnEnter(c.viewEntered)
	return c
}

// viewEntered runs after every completed view transition.
func (c *Console) viewEntered(view models.View) {
	if view.AiBearing() {
		c.Chat.ReconcileWelcome()
	}
}

// Init restores the console on startup: public catalog first, then the
// persisted session, then the session-scoped collections when a session
// survives. Partial failures land in the error log; Init itself only fails
// when nothing at all could be restored.
func (c *Console) Init(ctx context.Context) error {
	catalogErr := c.Catalog.FetchCatalog(ctx)

	if err := c.Session.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	if c.Session.Authenticated() {
		// Failures are already in the error log; startup proceeds.
		if err := c.Orders.FetchUserData(ctx); err != nil {
			log.Warn().Err(err).Msg("Partial user data restore on startup")
		}
		c.Threats.Start()
	}

	c.Views.Reconcile()

	if catalogErr != nil {
		log.Warn().Err(catalogErr).Msg("Catalog unavailable on startup")
	}
	return nil
}

// Login authenticates the operator against the backend. On success it
// establishes the session, restores the operator's collections, starts the
// threat feed, navigates home, and returns the operator greeting. On
// failure it returns an error whose message is the operator-facing text.
func (c *Console) Login(ctx context.Context, username, password string) (string, error) {
	c.ClearErrors()

	result, err := c.client.Login(ctx, username, password)
	if err != nil {
		return "", errors.New(messageOr(err, "Login sequence failed. Check uplink and credentials."))
	}
	if result == nil || result.User == nil || result.Token == "" {
		return "", errors.New("Login sequence failed. Check uplink and credentials.")
	}

	c.Session.Establish(ctx, result.Token, result.User)

	clearance := "Standard access to Projekt Ckryptbit systems granted."
	if result.User.IsAdmin {
		clearance = "ADMIN CLEARANCE GRANTED. Secure Relay protocol recommended for restricted matrix access."
	}
	greeting := fmt.Sprintf("Authentication Protocol Engaged. Welcome Operator %s. %s", result.User.Username, clearance)
	c.Alert(greeting)

	c.afterAuthentication(ctx, result.User.IsAdmin)
	return greeting, nil
}

// Register creates an operator identity and establishes the session, with
// the same post-authentication flow as Login.
func (c *Console) Register(ctx context.Context, username, email, password string) (string, error) {
	c.ClearErrors()

	result, err := c.client.Register(ctx, username, email, password)
	if err != nil {
		return "", errors.New(messageOr(err, "Operator ID registration failed. System conflict or invalid parameters."))
	}
	if result == nil || result.User == nil || result.Token == "" {
		return "", errors.New("Operator ID registration failed. System conflict or invalid parameters.")
	}

	c.Session.Establish(ctx, result.Token, result.User)

	clearance := "Standard access protocols active."
	if result.User.IsAdmin {
		clearance = "ADMIN CLEARANCE GRANTED."
	}
	greeting := fmt.Sprintf("Operator ID Registered & Uplink Established. Welcome, %s. %s", result.User.Username, clearance)
	c.Alert(greeting)

	c.afterAuthentication(ctx, result.User.IsAdmin)
	return greeting, nil
}

func (c *Console) afterAuthentication(ctx context.Context, isAdmin bool) {
	if err := c.Orders.FetchUserData(ctx); err != nil {
		log.Warn().Err(err).Msg("Partial user data fetch after authentication")
	}
	c.Threats.Start()

	if isAdmin {
		c.Views.Navigate(models.ViewAdminDashboard)
	} else {
		c.Views.Navigate(models.ViewShop)
	}
}

// Logout tears the session down. It always succeeds locally even when the
// backend is unreachable: session keys are cleared, the carrier and the
// operator collections are dropped, the relay is deactivated, and the
// console returns to the landing view. The chat transcript survives.
func (c *Console) Logout(ctx context.Context) string {
	c.Session.ClearLocal(ctx)
	c.Catalog.ClearCart()
	c.Orders.Clear()
	c.Threats.Stop()
	c.ClearErrors()

	msg := "Logout Sequence Complete. Secure Relay Deactivated. Session data purged from local terminal."
	c.Alert(msg)
	c.Views.Navigate(models.ViewLanding)

	log.Info().Msg("Operator session terminated")
	return msg
}

// Purge asks the backend to erase all operator-specific data, then clears
// the local collections and re-fetches the public catalog. On backend
// failure nothing local changes.
func (c *Console) Purge(ctx context.Context) (string, error) {
	msg, err := c.client.PurgeMyData(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			c.expireSession(ctx)
		}
		return "", errors.New("Data purge failed: " + messageOr(err, "Unknown backend error."))
	}

	c.Catalog.ClearCart()
	c.Orders.Clear()
	if derr := c.Session.DeactivateRelay(ctx); derr != nil {
		log.Warn().Err(derr).Msg("Relay deactivation failed during purge")
	}

	if msg == "" {
		msg = "Operator data successfully purged from backend systems. Local cache cleared."
	}
	c.Alert(msg)

	if ferr := c.Catalog.FetchCatalog(ctx); ferr != nil {
		log.Warn().Err(ferr).Msg("Catalog refresh after purge failed")
	}

	log.Info().Msg("Operator data purged")
	return msg, nil
}

// Checkout runs the acquisition protocol on the current carrier: backend
// checkout, merge of the returned orders and assets, and the follow-up
// navigation. A new order awaiting target info opens the target prompt and
// suppresses navigation; otherwise the console moves to the most relevant
// collection view.
func (c *Console) Checkout(ctx context.Context) (*models.CheckoutResult, error) {
	user := c.Session.User()
	if user == nil {
		c.Alert("Authentication Anomaly Detected. Re-authenticate.")
		c.Views.Navigate(models.ViewLogin)
		return nil, errors.New("Authentication Anomaly Detected. Re-authenticate.")
	}

	result, err := c.Catalog.Checkout(ctx, user.ID)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			c.expireSession(ctx)
		}
		return nil, err
	}

	c.Alert(fmt.Sprintf("Acquisition protocol successful. %d new service dockets. %d new intel packets acquired. Your IP has been logged for security audit.",
		len(result.NewOrders), len(result.NewDigitalAssets)))

	pending := c.Orders.MergeCheckout(result)
	switch {
	case pending != nil:
		// Target prompt takes priority; the surface drives navigation
		// once the prompt resolves.
	case len(result.NewOrders) > 0:
		c.Views.Navigate(models.ViewPentestOrders)
	case len(result.NewDigitalAssets) > 0:
		c.Views.Navigate(models.ViewMyDigitalAssets)
	default:
		c.Views.Navigate(models.ViewShop)
	}

	return result, nil
}

// expireSession handles a backend token rejection observed mid-session.
// The stale session is torn down locally and the operator is sent back to
// the login view to re-authenticate. The carrier and collections are left
// in place; the next login replaces them.
func (c *Console) expireSession(ctx context.Context) {
	c.Threats.Stop()
	c.Session.ClearLocal(ctx)
	c.Alert("Authentication Anomaly Detected. Re-authenticate.")
	c.Views.Navigate(models.ViewLogin)
	log.Warn().Msg("Backend rejected session token; local session expired")
}

// AppendError adds one entry to the accumulated error log. Entries are
// newline-joined and never overwrite each other.
func (c *Console) AppendError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errorLog != "" {
		c.errorLog += "\n"
	}
	c.errorLog += msg
}

// ErrorLog returns the accumulated error log, "" when clean.
func (c *Console) ErrorLog() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorLog
}

// ClearErrors empties the error log.
func (c *Console) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorLog = ""
}

// Alert records an operator-facing notice. The backlog is bounded; oldest
// entries fall off first.
func (c *Console) Alert(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, msg)
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxAlerts:]
	}
	log.Info().Str("alert", msg).Msg("Operator alert raised")
}

// Alerts returns the pending operator notices, oldest first.
func (c *Console) Alerts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// ClearAlerts drops all pending operator notices.
func (c *Console) ClearAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = nil
}

// messageOr returns the error's message, or the fallback when it is empty.
func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
