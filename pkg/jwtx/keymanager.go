package jwtx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/quizverse/quizverse/pkg/cryptox"
)

// KeyManager owns the signing keys of one instance and the matching
// verifier. Signing picks a key at random when several are loaded.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	// Issuer is written into and required on every token.
	Issuer string

	// PrivateKeys are PKCS8 PEM Ed25519 keys to load. When empty NumKeys
	// ephemeral keys are generated and every token dies with the process.
	PrivateKeys [][]byte

	// NumKeys is the number of ephemeral keys (1..10, default 1).
	NumKeys int

	// KeyID overrides the kid of the first key. Other keys use thumbprints.
	KeyID string

	// Leeway tolerated on exp/nbf.
	Leeway time.Duration

	// Now overrides the verifier clock (tests).
	Now func() time.Time
}

// NewKeyManager loads or generates signing keys.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	keys := opts.PrivateKeys
	if len(keys) == 0 {
		n := min(max(opts.NumKeys, 1), 10)
		for range n {
			pemKey, err := cryptox.GenerateEd25519Key()
			if err != nil {
				return nil, fmt.Errorf("jwtx: generate key: %w", err)
			}
			keys = append(keys, pemKey)
		}
	}

	km := &KeyManager{KeySet: NewKeySet()}
	for i, pemKey := range keys {
		kid := ""
		if i == 0 {
			kid = opts.KeyID
		}
		signer, err := NewSignerEdDSA(kid, pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}
	km.Verifier = NewVerifier(km.KeySet, opts.Issuer, opts.Leeway, opts.Now)

	return km, nil
}

// AddSigner makes s available for signing and its key for verification.
func (km *KeyManager) AddSigner(s Signer) error {
	if s == nil {
		return errors.New("jwtx: signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(s); err != nil {
		return fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, s)
	return nil
}

// Sign signs claims with one of the loaded keys.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return "", ErrNoKey
	case 1:
		return km.signers[0].Sign(claims)
	default:
		return km.signers[rand.IntN(len(km.signers))].Sign(claims)
	}
}

// IsReady reports whether the manager can both sign and verify.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// NumSigners returns the number of signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}
