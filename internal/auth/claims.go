package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// ScopeAdminRead grants read access to the call log.
const ScopeAdminRead = "calllog:read"

// Claims are the only supported JWT claims shape for the admin API.
// Subject carries the operator name.
type Claims struct {
	jwt.RegisteredClaims

	Scope     string    `json:"scope"`
	TokenType TokenType `json:"token_type"`
}
