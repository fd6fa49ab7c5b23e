package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
)

// ParseBearerClaims decodes the backend bearer token without verifying its
// signature. The console holds no key material; the backend remains the sole
// authority on token validity, and these claims are surfaced in the operator
// profile for display only.
//
// Returns nil for tokens that are not parseable JWTs (the backend contract
// does not promise the token is a JWT at all).
func ParseBearerClaims(token string) *models.TokenClaims {
	if token == "" {
		return nil
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		log.Debug().Err(err).Msg("Bearer token is not a parseable JWT")
		return nil
	}

	parsed := &models.TokenClaims{}

	if sub, err := claims.GetSubject(); err == nil {
		parsed.Subject = sub
	}
	if username, ok := claims["username"].(string); ok {
		parsed.Username = username
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time.UTC()
		parsed.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		parsed.ExpiresAt = &t
	}

	return parsed
}

// TokenExpiry returns the expiry time from parsed claims, or nil when the
// token carries none.
func TokenExpiry(claims *models.TokenClaims) *time.Time {
	if claims == nil {
		return nil
	}
	return claims.ExpiresAt
}
