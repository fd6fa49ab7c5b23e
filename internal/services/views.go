package services

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// relayRequiredAlert is raised when the admin dashboard is requested
// without an active secure relay.
const relayRequiredAlert = "Secure Relay NOT ACTIVE. Admin Dashboard access requires an active Secure Relay connection. Please activate it in your Operator Profile."

// SessionState is the slice of session the view controller consults for
// its guard and reconciliation rules.
type SessionState interface {
	Authenticated() bool
	IsAdmin() bool
	RelayActive() bool
}

// ViewController owns the active console view and the transition lock.
//
// Every accepted navigation passes through a scheduled transition window.
// While a transition is in flight the controller is "transitioning"; a
// repeat request for the same pending target is dropped, and a request for
// a different target cancels the pending switch and retargets it, so the
// last accepted request wins.
type ViewController struct {
	mu    sync.Mutex
	sched Scheduler

	session SessionState
	alert   func(string)
	onEnter func(models.View)

	lockDuration  time.Duration
	current       models.View
	pending       models.View
	transitioning bool
	task          Task
}

// NewViewController creates the controller on the landing view. The alert
// sink receives operator-facing guard alerts and may be nil.
func NewViewController(sched Scheduler, session SessionState, lockDuration time.Duration, alert func(string)) *ViewController {
	return &ViewController{
		sched:        sched,
		session:      session,
		alert:        alert,
		lockDuration: lockDuration,
		current:      models.ViewLanding,
	}
}

// SetOnEnter registers a callback invoked after a transition completes,
// with the view just entered. Set once during wiring, before any
// navigation.
func (v *ViewController) SetOnEnter(fn func(models.View)) {
	v.onEnter = fn
}

// Current returns the active view.
func (v *ViewController) Current() models.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Transitioning reports whether a view switch is in flight.
func (v *ViewController) Transitioning() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transitioning
}

// Navigate requests a switch to the target view.
//
// Requesting the view already shown while idle is a no-op, as is repeating
// the request already in flight. A different target while transitioning
// cancels the pending switch and replaces it. The admin dashboard is
// guarded: without admin clearance and an active secure relay the request
// is alerted and redirected to the operator profile, still through the
// transition window.
func (v *ViewController) Navigate(target models.View) {
	var raised string

	v.mu.Lock()
	if v.transitioning && v.pending == target {
		v.mu.Unlock()
		return
	}
	if !v.transitioning && v.current == target {
		v.mu.Unlock()
		return
	}

	if target == models.ViewAdminDashboard && !(v.session.IsAdmin() && v.session.RelayActive()) {
		raised = relayRequiredAlert
		target = models.ViewUserProfile
	}

	if v.task != nil {
		v.task.Stop()
	}
	v.transitioning = true
	v.pending = target
	v.task = v.sched.Schedule(v.lockDuration, v.completeTransition)
	v.mu.Unlock()

	if raised != "" {
		log.Warn().Str("target", string(models.ViewAdminDashboard)).Msg("Admin dashboard access denied without secure relay")
		if v.alert != nil {
			v.alert(raised)
		}
	}
}

// completeTransition lands the pending view, then runs the post-change
// hooks outside the lock.
func (v *ViewController) completeTransition() {
	v.mu.Lock()
	v.current = v.pending
	v.transitioning = false
	v.task = nil
	entered := v.current
	v.mu.Unlock()

	log.Debug().Str("view", string(entered)).Msg("View transition complete")

	if v.onEnter != nil {
		v.onEnter(entered)
	}
	v.Reconcile()
}

// Reconcile enforces the session-dependent view rules. It runs after every
// completed transition and after any session change (login, logout).
//
// Rules, in order, first match wins:
//  1. an unauthenticated session on a non-guest view goes to landing
//  2. an authenticated session still on login or register goes home
//  3. an authenticated session idle on landing goes home
//
// Home is the admin dashboard for admins, the shop otherwise; the admin
// dashboard guard still applies.
func (v *ViewController) Reconcile() {
	v.mu.Lock()
	current := v.current
	transitioning := v.transitioning
	v.mu.Unlock()

	authenticated := v.session.Authenticated()

	switch {
	case !authenticated && !current.GuestAccessible():
		v.Navigate(models.ViewLanding)
	case authenticated && (current == models.ViewLogin || current == models.ViewRegister):
		v.Navigate(v.homeView())
	case authenticated && current == models.ViewLanding && !transitioning:
		v.Navigate(v.homeView())
	}
}

func (v *ViewController) homeView() models.View {
	if v.session.IsAdmin() {
		return models.ViewAdminDashboard
	}
	return models.ViewShop
}
