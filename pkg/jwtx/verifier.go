package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrKind         = errors.New("jwtx: token kind mismatch")
)

// Verifier validates EdDSA tokens against a KeySet.
type Verifier struct {
	keys   *KeySet
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewVerifier creates a verifier. A nil now uses the wall clock.
func NewVerifier(keys *KeySet, issuer string, leeway time.Duration, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{keys: keys, issuer: issuer, leeway: leeway, now: now}
}

// Verify checks signature, issuer and lifetime and returns the claims. It
// does not look at Kind; use VerifyKind for that.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	// exp/nbf are checked below against our own clock, not the parser's.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}
		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKID):
			return nil, ErrUnknownKID
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSig
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiryAt(v.now(), v.leeway); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidClaim
	}

	return claims, nil
}

// VerifyKind is Verify plus a namespace check.
func (v *Verifier) VerifyKind(tokenStr string, kind TokenKind) (*Claims, error) {
	claims, err := v.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if err := claims.ValidateKind(kind); err != nil {
		return nil, err
	}
	return claims, nil
}
