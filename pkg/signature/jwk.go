package signature

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-jose/go-jose/v4"
)

// KeyID returns the RFC 7638 SHA-256 thumbprint of pub, base64url encoded.
func KeyID(pub ed25519.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// Fingerprint returns a short, display-only identifier for pub.
func Fingerprint(pub ed25519.PublicKey) string {
	kid, err := KeyID(pub)
	if err != nil || len(kid) < 16 {
		return kid
	}
	return kid[:16]
}

func newJWK(key interface{}, pub ed25519.PublicKey) (jose.JSONWebKey, error) {
	kid, err := KeyID(pub)
	if err != nil {
		return jose.JSONWebKey{}, err
	}
	return jose.JSONWebKey{
		Key:       key,
		KeyID:     kid,
		Algorithm: string(jose.EdDSA),
		Use:       "sig",
	}, nil
}

// SavePrivateJWK writes the private half of kp to path as a JWK (mode 0600).
func SavePrivateJWK(kp *KeyPair, path string) error {
	if kp == nil || kp.Private == nil {
		return fmt.Errorf("%w: private key", ErrNilKey)
	}
	jwk, err := newJWK(kp.Private, kp.Public)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(jwk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	return nil
}

// SavePublicJWK writes pub to path as a JWK (mode 0644).
func SavePublicJWK(pub ed25519.PublicKey, path string) error {
	if pub == nil {
		return fmt.Errorf("%w: public key", ErrNilKey)
	}
	jwk, err := newJWK(pub, pub)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(jwk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	return nil
}

func readJWK(path string) (*jose.JSONWebKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse JWK: %w", err)
	}
	return &jwk, nil
}

// LoadPrivateJWK loads an Ed25519 private key from a JWK file.
func LoadPrivateJWK(path string) (*KeyPair, error) {
	jwk, err := readJWK(path)
	if err != nil {
		return nil, err
	}
	priv, ok := jwk.Key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key in %s is not an Ed25519 private key", ErrInvalidPrivateKey, path)
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: cannot derive public key", ErrInvalidPrivateKey)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// LoadPublicJWK loads an Ed25519 public key from a JWK file. A private JWK
// is accepted and its public half returned.
func LoadPublicJWK(path string) (ed25519.PublicKey, error) {
	jwk, err := readJWK(path)
	if err != nil {
		return nil, err
	}
	switch k := jwk.Key.(type) {
	case ed25519.PublicKey:
		return k, nil
	case ed25519.PrivateKey:
		return k.Public().(ed25519.PublicKey), nil
	default:
		return nil, fmt.Errorf("%w: key in %s is %T", ErrInvalidPublicKey, path, jwk.Key)
	}
}
