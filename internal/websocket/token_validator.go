package websocket

import (
	"crypto/subtle"
	"errors"
)

// ErrInvalidToken is returned when the connection token does not match
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator checks the token a browser passes when opening the socket
type TokenValidator interface {
	ValidateToken(token string) error
}

// SecretValidator accepts exactly one shared secret.
// An empty secret accepts every token, matching an unauthenticated API.
type SecretValidator struct {
	secret []byte
}

// NewSecretValidator creates a validator for secret
func NewSecretValidator(secret string) *SecretValidator {
	return &SecretValidator{secret: []byte(secret)}
}

// ValidateToken implements TokenValidator
func (v *SecretValidator) ValidateToken(token string) error {
	if len(v.secret) == 0 {
		return nil
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
		return ErrInvalidToken
	}
	return nil
}
