package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/simp-lee/jwt"
)

const tokenIssuer = "gamelib"

// TokenIssuer signs, verifies and revokes access tokens whose subject is the
// user id. Revocations live in memory and end with the process.
type TokenIssuer struct {
	svc    jwt.Service
	expiry time.Duration
}

// NewTokenIssuer creates a TokenIssuer. The caller must Close it.
func NewTokenIssuer(secret string, expiry time.Duration, opts ...jwt.Option) (*TokenIssuer, error) {
	if expiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}
	opts = append([]jwt.Option{
		jwt.WithIssuer(tokenIssuer),
		jwt.WithMaxTokenLifetime(expiry),
		jwt.WithUserRevocationTTL(max(jwt.DefaultUserRevocationTTL, expiry)),
	}, opts...)
	svc, err := jwt.New(secret, opts...)
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}
	return &TokenIssuer{svc: svc, expiry: expiry}, nil
}

// Issue returns a signed token for userID and its expiry time.
func (t *TokenIssuer) Issue(userID uint) (string, time.Time, error) {
	token, err := t.svc.GenerateToken(strconv.FormatUint(uint64(userID), 10), nil, t.expiry)
	if err != nil {
		return "", time.Time{}, err
	}
	parsed, err := t.svc.ParseToken(token)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, parsed.ExpiresAt, nil
}

// Verify checks the signature, issuer, expiry and revocation of token and
// returns the user id.
func (t *TokenIssuer) Verify(token string) (uint, error) {
	parsed, err := t.svc.ValidateToken(token)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(parsed.UserID, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("token subject is not a user id")
	}
	return uint(id), nil
}

// Revoke makes token fail verification for the rest of its lifetime.
func (t *TokenIssuer) Revoke(token string) error {
	return t.svc.RevokeToken(token)
}

// Close stops the background cleanup of revoked tokens.
func (t *TokenIssuer) Close() {
	t.svc.Close()
}
