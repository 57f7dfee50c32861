// Package signature provides the Ed25519 signing capability used by signed
// QR records: key generation, signing, verification and the text encodings
// of keys and signatures that travel inside a record.
package signature

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Common errors returned by this package.
var (
	ErrNilKey              = errors.New("key is nil")
	ErrInvalidPrivateKey   = errors.New("invalid Ed25519 private key")
	ErrInvalidPublicKey    = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature    = errors.New("invalid Ed25519 signature")
	ErrInvalidEncoding     = errors.New("invalid base64 encoding")
	ErrProviderUnavailable = errors.New("signature provider unavailable")
	ErrKeyMismatch         = errors.New("public key does not match private key")
)

// Algorithm is the only signature algorithm supported by the engine.
const Algorithm = "Ed25519"

// KeyPair holds both halves of an Ed25519 key.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// CheckKeyPair reports whether kp holds well-sized halves and whether its
// public half belongs to its private half.
func CheckKeyPair(kp *KeyPair) error {
	if kp == nil || kp.Private == nil || kp.Public == nil {
		return ErrNilKey
	}
	if len(kp.Private) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: length %d", ErrInvalidPrivateKey, len(kp.Private))
	}
	if len(kp.Public) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(kp.Public))
	}
	derived, ok := kp.Private.Public().(ed25519.PublicKey)
	if !ok || !derived.Equal(kp.Public) {
		return ErrKeyMismatch
	}
	return nil
}

// Engine is the signing capability consumed by the record protocol.
type Engine interface {
	// GenerateKeyPair returns a fresh key pair.
	GenerateKeyPair() (*KeyPair, error)

	// Sign signs data with the private key.
	Sign(data []byte, priv ed25519.PrivateKey) ([]byte, error)

	// Verify checks sig over data with pub. Well-shaped input that does not
	// verify yields false with a nil error; shape mismatches yield an error.
	Verify(data, sig []byte, pub ed25519.PublicKey) (bool, error)

	// EncodePublicKey returns the transport text form of pub.
	EncodePublicKey(pub ed25519.PublicKey) (string, error)

	// DecodePublicKey is the inverse of EncodePublicKey.
	DecodePublicKey(text string) (ed25519.PublicKey, error)

	// EncodeSignature returns the transport text form of sig.
	EncodeSignature(sig []byte) string

	// DecodeSignature is the inverse of EncodeSignature.
	DecodeSignature(text string) ([]byte, error)
}

// transportEncoding is standard base64 with strict decoding, so that every
// signature and key has exactly one accepted text form.
var transportEncoding = base64.StdEncoding.Strict()

// Ed25519Engine implements Engine with crypto/ed25519. Public keys are
// carried as base64 of their X.509 SubjectPublicKeyInfo DER encoding.
type Ed25519Engine struct {
	rand io.Reader
}

// NewEd25519Engine creates an engine reading randomness from r.
// A nil reader selects crypto/rand.
func NewEd25519Engine(r io.Reader) *Ed25519Engine {
	if r == nil {
		r = rand.Reader
	}
	return &Ed25519Engine{rand: r}
}

var (
	defaultOnce   sync.Once
	defaultEngine *Ed25519Engine
	defaultErr    error
)

// Default returns the process-wide engine. The first call runs a provider
// self-test; every caller, concurrent or not, observes the same outcome.
func Default() (*Ed25519Engine, error) {
	defaultOnce.Do(func() {
		e := NewEd25519Engine(nil)
		if err := e.selfTest(); err != nil {
			defaultErr = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			return
		}
		defaultEngine = e
	})
	return defaultEngine, defaultErr
}

// selfTest signs a probe and checks that it verifies and that a modified
// probe does not.
func (e *Ed25519Engine) selfTest() error {
	kp, err := e.GenerateKeyPair()
	if err != nil {
		return err
	}
	probe := []byte("signedqr provider self-test")
	sig, err := e.Sign(probe, kp.Private)
	if err != nil {
		return err
	}
	if ok, err := e.Verify(probe, sig, kp.Public); err != nil || !ok {
		return errors.New("probe signature did not verify")
	}
	probe[0] ^= 0xff
	if ok, _ := e.Verify(probe, sig, kp.Public); ok {
		return errors.New("modified probe verified")
	}
	return nil
}

// GenerateKeyPair returns a fresh Ed25519 key pair.
func (e *Ed25519Engine) GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(e.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// Sign signs data with priv.
func (e *Ed25519Engine) Sign(data []byte, priv ed25519.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilKey)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPrivateKey, len(priv))
	}
	return ed25519.Sign(priv, data), nil
}

// Verify checks sig over data with pub.
func (e *Ed25519Engine) Verify(data, sig []byte, pub ed25519.PublicKey) (bool, error) {
	if pub == nil {
		return false, fmt.Errorf("%w: public key", ErrNilKey)
	}
	// ed25519.Verify panics on a short key.
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(pub))
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	return ed25519.Verify(pub, data, sig), nil
}

// EncodePublicKey returns base64(SubjectPublicKeyInfo DER) of pub.
func (e *Ed25519Engine) EncodePublicKey(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(pub))
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return transportEncoding.EncodeToString(der), nil
}

// DecodePublicKey parses the output of EncodePublicKey.
func (e *Ed25519Engine) DecodePublicKey(text string) (ed25519.PublicKey, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty public key", ErrInvalidEncoding)
	}
	der, err := transportEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key type %T", ErrInvalidPublicKey, parsed)
	}
	// Reject DER that parses but is not the canonical encoding.
	canonical, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil || !bytes.Equal(canonical, der) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidPublicKey)
	}
	return pub, nil
}

// EncodeSignature returns base64 of sig.
func (e *Ed25519Engine) EncodeSignature(sig []byte) string {
	return transportEncoding.EncodeToString(sig)
}

// DecodeSignature parses the output of EncodeSignature.
func (e *Ed25519Engine) DecodeSignature(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty signature", ErrInvalidEncoding)
	}
	sig, err := transportEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return sig, nil
}

// IsTransportText reports whether text is non-empty, strictly valid base64.
// It checks syntax only and does not interpret the decoded bytes.
func IsTransportText(text string) bool {
	if text == "" {
		return false
	}
	_, err := transportEncoding.DecodeString(text)
	return err == nil
}
