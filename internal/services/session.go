package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/database"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// SessionService owns the console's authentication state and its durable
// persistence. The state is reconstructed from the terminal store at startup
// and replaced wholesale on login, register, and logout.
//
// Invariant: Authenticated implies a non-nil user. A stored token without a
// stored user is treated as no session at all; the console has no whoami
// endpoint to recover the user from, so it clears the orphaned token and
// starts in guest mode.
type SessionService struct {
	mu    sync.RWMutex
	store *database.TerminalStore

	session      models.Session
	claims       *models.TokenClaims
	relayActive  bool
	relayAddress string
}

// NewSessionService creates a session service over the terminal store.
// Call Init before serving traffic to hydrate persisted state.
func NewSessionService(store *database.TerminalStore) *SessionService {
	return &SessionService{store: store}
}

// Init hydrates session state from the terminal store.
// A token paired with a readable user snapshot yields an authenticated
// session; a token without one clears the token and yields guest mode.
// Store read failures degrade to guest mode rather than aborting startup.
func (s *SessionService) Init(ctx context.Context) error {
	token, err := s.store.LoadSessionToken(ctx)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}

	if token == "" {
		log.Info().Msg("No persisted session, starting in guest mode")
		return nil
	}

	user, err := s.store.LoadCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("load user snapshot: %w", err)
	}

	if user == nil {
		// Orphaned token. Without a whoami endpoint there is no way to
		// recover the user, so the token is discarded.
		log.Warn().Msg("Persisted token without user snapshot, clearing session")
		if err := s.store.ClearSession(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to clear orphaned session keys")
		}
		return nil
	}

	relay, err := s.store.SecureRelayActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read secure relay flag, assuming inactive")
		relay = false
	}

	claims := ParseBearerClaims(token)

	s.mu.Lock()
	s.session = models.Session{
		User:          user,
		Authenticated: true,
		Token:         token,
		TokenExpiry:   TokenExpiry(claims),
	}
	s.claims = claims
	s.relayActive = relay
	s.relayAddress = ""
	s.mu.Unlock()

	evt := log.Info().Str("username", user.Username).Bool("admin", user.IsAdmin)
	if claims != nil && claims.ExpiresAt != nil {
		evt = evt.Time("token_expiry", *claims.ExpiresAt)
	}
	evt.Msg("Session restored from terminal store")
	return nil
}

// Establish installs a fresh token+user pair after login or register and
// persists both. Persistence failures are logged but do not fail the
// operation; the in-memory session is already live and the operator loses
// only restart durability.
func (s *SessionService) Establish(ctx context.Context, token string, user *models.User) {
	claims := ParseBearerClaims(token)

	s.mu.Lock()
	s.session = models.Session{
		User:          user,
		Authenticated: true,
		Token:         token,
		TokenExpiry:   TokenExpiry(claims),
	}
	s.claims = claims
	s.mu.Unlock()

	if err := s.store.SaveSessionToken(ctx, token); err != nil {
		log.Warn().Err(err).Msg("Token not persisted, session will not survive restart")
	}
	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		log.Warn().Err(err).Msg("User snapshot not persisted")
	}
}

// ClearLocal drops the in-memory session and the persisted token/user pair,
// and deactivates the secure relay. Always succeeds locally; store failures
// are logged only, matching the logout contract.
func (s *SessionService) ClearLocal(ctx context.Context) {
	s.mu.Lock()
	s.session = models.Session{}
	s.claims = nil
	s.relayActive = false
	s.relayAddress = ""
	s.mu.Unlock()

	if err := s.store.ClearSession(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clear persisted session")
	}
	if err := s.store.SetSecureRelay(ctx, false); err != nil {
		log.Warn().Err(err).Msg("Failed to clear persisted relay flag")
	}
}

// Session returns a snapshot of the current session state.
func (s *SessionService) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Authenticated reports whether an operator session is live.
func (s *SessionService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated
}

// IsAdmin reports whether the current operator has admin clearance.
func (s *SessionService) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User != nil && s.session.User.IsAdmin
}

// User returns the current operator, or nil in guest mode.
func (s *SessionService) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User
}

// CurrentToken returns the backend bearer token, or "" in guest mode.
// Satisfies the api.TokenProvider contract via api.TokenFunc.
func (s *SessionService) CurrentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Claims returns the informational bearer token claims, or nil when the
// token was absent or not a JWT.
func (s *SessionService) Claims() *models.TokenClaims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// ActivateRelay turns the secure relay on, persists the flag, and issues a
// fresh simulated relay address. The address lives only in memory; it is
// regenerated on every activation.
func (s *SessionService) ActivateRelay(ctx context.Context) (string, error) {
	address := fmt.Sprintf("relay://%s.ckryptbit.onion",
		strings.ReplaceAll(uuid.NewString(), "-", "")[:16])

	s.mu.Lock()
	s.relayActive = true
	s.relayAddress = address
	s.mu.Unlock()

	if err := s.store.SetSecureRelay(ctx, true); err != nil {
		return address, fmt.Errorf("persist relay flag: %w", err)
	}

	log.Info().Str("relay_address", address).Msg("Secure relay activated")
	return address, nil
}

// DeactivateRelay turns the secure relay off and clears the relay address.
func (s *SessionService) DeactivateRelay(ctx context.Context) error {
	s.mu.Lock()
	s.relayActive = false
	s.relayAddress = ""
	s.mu.Unlock()

	if err := s.store.SetSecureRelay(ctx, false); err != nil {
		return fmt.Errorf("persist relay flag: %w", err)
	}

	log.Info().Msg("Secure relay deactivated")
	return nil
}

// RelayActive reports whether the secure relay is on.
func (s *SessionService) RelayActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relayActive
}

// RelayAddress returns the current simulated relay address, or "" when the
// relay is inactive or was activated in a previous process lifetime.
func (s *SessionService) RelayAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relayAddress
}
