package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/ledger"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/signedqr"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

const (
	privateKeyFile = "signing.jwk"
	publicKeyFile  = "signing.pub.jwk"
)

// newProtocol builds a protocol from the loaded config. A non-empty level
// overrides the configured one.
func newProtocol(level string) (*signedqr.Protocol, error) {
	lvl := cfg.SymbolLevel()
	if level != "" {
		parsed, err := symbol.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	return signedqr.New(signedqr.Config{
		Level:  lvl,
		Width:  cfg.Symbol.Width,
		Height: cfg.Symbol.Height,
		Logger: &logger,
	})
}

func defaultPrivateKeyPath() string {
	return filepath.Join(cfg.Keys.Dir, privateKeyFile)
}

func defaultPublicKeyPath() string {
	return filepath.Join(cfg.Keys.Dir, publicKeyFile)
}

// signingKey loads the key at path, or the default key when path is empty.
// With no key on disk it returns a fresh ephemeral pair and ephemeral=true.
func signingKey(p *signedqr.Protocol, path string) (kp *signature.KeyPair, ephemeral bool, err error) {
	if path == "" {
		if _, statErr := os.Stat(defaultPrivateKeyPath()); statErr == nil {
			path = defaultPrivateKeyPath()
		}
	}
	if path != "" {
		kp, err = signature.LoadPrivateJWK(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load signing key: %w", err)
		}
		return kp, false, nil
	}

	kp, err = p.Engine().GenerateKeyPair()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return kp, true, nil
}

func openLedger() (*ledger.Store, error) {
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return store, nil
}
