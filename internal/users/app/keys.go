package app

import (
	"fmt"
	"log/slog"

	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/jwtx"
)

// InitKeys builds the KeyManager.
//
// With SIGNING_KEY_FILE set the key is read from that file, or generated and
// written there on first start, so tokens survive restarts. Otherwise
// NUM_KEYS ephemeral keys are generated and every token dies with the process.
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		NumKeys: cfg.NumKeys,
		KeyID:   cfg.KeyID,
	}

	if cfg.SigningKeyFile != "" {
		pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, err
		}
		opts.PrivateKeys = [][]byte{pemKey}
	}

	km, err := jwtx.NewKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	if cfg.SigningKeyFile != "" {
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile, "issuer", cfg.Issuer)
	} else {
		logger.Info("generated ephemeral signing keys", "num_keys", km.NumSigners(), "issuer", cfg.Issuer)
		logger.Warn("all existing tokens are now invalid due to key rotation on startup")
	}
	return km, nil
}
