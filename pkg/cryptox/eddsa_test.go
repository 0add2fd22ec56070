package cryptox_test

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"

	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func parseEd25519(t *testing.T, pemBytes []byte) ed25519.PrivateKey {
	t.Helper()

	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)

	key, ok := parsed.(ed25519.PrivateKey)
	require.True(t, ok)
	return key
}

func TestGenerateEd25519Key(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	key := parseEd25519(t, pemBytes)
	require.Len(t, key, ed25519.PrivateKeySize)
}

func TestLoadOrCreateEd25519Key(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")

	created, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)

	loaded, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)
	require.Equal(t, created, loaded)
	require.Equal(t, parseEd25519(t, created), parseEd25519(t, loaded))
}
