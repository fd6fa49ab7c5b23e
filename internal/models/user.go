// Package models defines the core domain models for the Ckryptbit console.
// These models mirror the JSON wire format of the Ckryptbit backend API
// (camelCase field names) and are used throughout the gateway for the
// operator session, the shop, pentest orders, digital assets, and the AI
// chat workspace.
//
// Sensitive fields are marked with `json:"-"` to prevent accidental exposure
// in console surface responses.
package models

import "time"

// User represents an operator account as returned by the backend auth
// endpoints. The backend owns the account record; the console only caches
// the copy received at login/register time.
//
// JSON example:
//
//	{
//	  "id": "usr_8f2c91",
//	  "username": "ZeroCool",
//	  "email": "zerocool@example.com",
//	  "isAdmin": false
//	}
type User struct {
	ID       string `json:"id"`              // Backend user identifier
	Username string `json:"username"`        // Operator handle
	Email    string `json:"email,omitempty"` // Optional contact address
	IsAdmin  bool   `json:"isAdmin"`         // Admin clearance flag
}

// Session is the console's authentication state. It is reconstructed from
// the durable terminal store on startup and replaced wholesale on
// login/register/logout.
//
// Invariant: Authenticated implies User != nil.
type Session struct {
	User          *User      `json:"user"`          // Current operator, nil when unauthenticated
	Authenticated bool       `json:"authenticated"` // True only with a trusted token+user pair
	Token         string     `json:"-"`             // Backend bearer token (never exposed)
	TokenExpiry   *time.Time `json:"tokenExpiry,omitempty"`
}

// TokenClaims holds the subset of backend bearer token claims the console
// surfaces in the operator profile. The console never validates the token
// signature (it has no key material); claims are informational only and the
// backend remains the authority on token validity.
type TokenClaims struct {
	Subject   string     `json:"subject,omitempty"`
	Username  string     `json:"username,omitempty"`
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// AuthResult is the payload returned by the backend login and register
// endpoints.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
