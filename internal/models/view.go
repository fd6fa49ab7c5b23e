package models

// View identifies one screen of the console surface. Navigation between
// views goes through the view controller's transition lock and its guard
// rules; the set is closed.
type View string

// Console views.
const (
	ViewLanding         View = "landing"
	ViewArchitect       View = "architect"
	ViewChat            View = "chat"
	ViewWorkspace       View = "workspace"
	ViewLogin           View = "login"
	ViewRegister        View = "register"
	ViewShop            View = "shop"
	ViewCart            View = "cart"
	ViewAdminProducts   View = "admin_products"
	ViewPentestOrders   View = "pentest_orders"
	ViewSecurityReport  View = "security_report"
	ViewAdminPentest    View = "admin_pentest_orders"
	ViewMyDigitalAssets View = "my_digital_assets"
	ViewThreatIntelFeed View = "threat_intel_feed"
	ViewUserProfile     View = "user_profile"
	ViewAdminDashboard  View = "admin_dashboard"
)

// Valid reports whether the view id names a known screen.
func (v View) Valid() bool {
	switch v {
	case ViewLanding, ViewArchitect, ViewChat, ViewWorkspace, ViewLogin,
		ViewRegister, ViewShop, ViewCart, ViewAdminProducts, ViewPentestOrders,
		ViewSecurityReport, ViewAdminPentest, ViewMyDigitalAssets,
		ViewThreatIntelFeed, ViewUserProfile, ViewAdminDashboard:
		return true
	}
	return false
}

// GuestAccessible reports whether the view is reachable without an
// authenticated session. The chat and architect screens are intentionally
// open to guests; everything else requires auth.
func (v View) GuestAccessible() bool {
	switch v {
	case ViewLanding, ViewLogin, ViewRegister, ViewChat, ViewArchitect:
		return true
	}
	return false
}

// AiBearing reports whether the view hosts the AI chat transcript and
// therefore participates in welcome-message reconciliation.
func (v View) AiBearing() bool {
	switch v {
	case ViewChat, ViewArchitect, ViewWorkspace:
		return true
	}
	return false
}
