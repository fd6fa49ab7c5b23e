package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// fakeSession satisfies SessionState with fixed answers.
type fakeSession struct {
	authenticated bool
	admin         bool
	relay         bool
}

func (f *fakeSession) Authenticated() bool { return f.authenticated }
func (f *fakeSession) IsAdmin() bool       { return f.admin }
func (f *fakeSession) RelayActive() bool   { return f.relay }

const testLock = 250 * time.Millisecond

func newTestViews(session *fakeSession) (*ViewController, *manualScheduler, *[]string) {
	sched := newManualScheduler()
	var alerts []string
	vc := NewViewController(sched, session, testLock, func(msg string) {
		alerts = append(alerts, msg)
	})
	return vc, sched, &alerts
}

func TestViewController_Navigate(t *testing.T) {
	t.Run("transition lands after the lock window", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{})

		vc.Navigate(models.ViewLogin)
		assert.True(t, vc.Transitioning())
		assert.Equal(t, models.ViewLanding, vc.Current(), "view must not change before the window elapses")

		sched.Advance(testLock)
		assert.False(t, vc.Transitioning())
		assert.Equal(t, models.ViewLogin, vc.Current())
	})

	t.Run("repeat request for the pending target is dropped", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{})

		vc.Navigate(models.ViewLogin)
		vc.Navigate(models.ViewLogin)
		assert.Equal(t, 1, sched.pendingTasks())

		sched.Advance(testLock)
		assert.Equal(t, models.ViewLogin, vc.Current())
	})

	t.Run("request for the current view while idle is dropped", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{})

		vc.Navigate(models.ViewLanding)
		assert.False(t, vc.Transitioning())
		assert.Equal(t, 0, sched.pendingTasks())
	})

	t.Run("retarget mid-flight cancels the pending switch", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{authenticated: true})

		vc.Navigate(models.ViewChat)
		sched.Advance(testLock / 2)
		vc.Navigate(models.ViewArchitect)

		sched.Advance(testLock)
		assert.Equal(t, models.ViewArchitect, vc.Current(), "last accepted request wins")
		assert.False(t, vc.Transitioning())
	})

	t.Run("onEnter receives the landed view", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{})
		var entered []models.View
		vc.SetOnEnter(func(v models.View) { entered = append(entered, v) })

		vc.Navigate(models.ViewChat)
		sched.Advance(testLock)

		assert.Equal(t, []models.View{models.ViewChat}, entered)
	})
}

func TestViewController_AdminGuard(t *testing.T) {
	t.Run("non-admin is redirected to the operator profile", func(t *testing.T) {
		vc, sched, alerts := newTestViews(&fakeSession{authenticated: true})

		vc.Navigate(models.ViewAdminDashboard)
		sched.Advance(testLock)

		assert.Equal(t, models.ViewUserProfile, vc.Current())
		assert.Equal(t, []string{relayRequiredAlert}, *alerts)
	})

	t.Run("admin without an active relay is redirected", func(t *testing.T) {
		vc, sched, alerts := newTestViews(&fakeSession{authenticated: true, admin: true})

		vc.Navigate(models.ViewAdminDashboard)
		sched.Advance(testLock)

		assert.Equal(t, models.ViewUserProfile, vc.Current())
		assert.Len(t, *alerts, 1)
	})

	t.Run("admin with an active relay passes", func(t *testing.T) {
		vc, sched, alerts := newTestViews(&fakeSession{authenticated: true, admin: true, relay: true})

		vc.Navigate(models.ViewAdminDashboard)
		sched.Advance(testLock)

		assert.Equal(t, models.ViewAdminDashboard, vc.Current())
		assert.Empty(t, *alerts)
	})
}

func TestViewController_Reconcile(t *testing.T) {
	t.Run("unauthenticated session leaves protected views", func(t *testing.T) {
		session := &fakeSession{authenticated: true}
		vc, sched, _ := newTestViews(session)

		vc.Navigate(models.ViewShop)
		sched.Advance(testLock)
		assert.Equal(t, models.ViewShop, vc.Current())

		session.authenticated = false
		vc.Reconcile()
		sched.Advance(testLock)
		assert.Equal(t, models.ViewLanding, vc.Current())
	})

	t.Run("unauthenticated session keeps guest views", func(t *testing.T) {
		vc, sched, _ := newTestViews(&fakeSession{})

		vc.Navigate(models.ViewChat)
		sched.Advance(testLock)

		vc.Reconcile()
		assert.Equal(t, 0, sched.pendingTasks())
		assert.Equal(t, models.ViewChat, vc.Current())
	})

	t.Run("authenticated session leaves the login view", func(t *testing.T) {
		session := &fakeSession{}
		vc, sched, _ := newTestViews(session)

		vc.Navigate(models.ViewLogin)
		sched.Advance(testLock)

		session.authenticated = true
		vc.Reconcile()
		sched.Advance(testLock)
		assert.Equal(t, models.ViewShop, vc.Current())
	})

	t.Run("authenticated admin idle on landing goes to the dashboard", func(t *testing.T) {
		session := &fakeSession{authenticated: true, admin: true, relay: true}
		vc, sched, _ := newTestViews(session)

		vc.Reconcile()
		sched.Advance(testLock)
		assert.Equal(t, models.ViewAdminDashboard, vc.Current())
	})

	t.Run("runs automatically after each transition", func(t *testing.T) {
		session := &fakeSession{authenticated: true}
		vc, sched, _ := newTestViews(session)

		// Landing on login while already authenticated chains a second
		// transition to the home view.
		vc.Navigate(models.ViewLogin)
		sched.Advance(testLock)
		assert.True(t, vc.Transitioning())

		sched.Advance(testLock)
		assert.Equal(t, models.ViewShop, vc.Current())
	})
}
