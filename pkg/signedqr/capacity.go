package signedqr

import (
	"crypto/ed25519"
	"fmt"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
)

// measureOverhead returns the wire length of a record with empty data. Base64
// text never needs JSON escaping, so any signature and key of the engine's
// fixed sizes produce the same length as these zero-valued placeholders.
func measureOverhead(engine signature.Engine) (int, error) {
	pub, err := engine.EncodePublicKey(make(ed25519.PublicKey, ed25519.PublicKeySize))
	if err != nil {
		return 0, fmt.Errorf("failed to measure key encoding: %w", err)
	}
	sig := engine.EncodeSignature(make([]byte, ed25519.SignatureSize))
	return len(Serialize(RawFields{Signature: sig, PublicKey: pub})), nil
}

// Overhead returns the number of wire bytes a record spends on everything
// except its data: the object syntax, the field names, the signature and the
// public key.
func (p *Protocol) Overhead() int {
	return p.overhead
}

// MaxDataLength returns the largest data length, in UTF-8 bytes, that Create
// accepts at the configured level. Data containing characters that need JSON
// escaping expands on the wire and may still fail with PAYLOAD_TOO_LARGE.
func (p *Protocol) MaxDataLength() int {
	if n := p.level.Capacity() - p.overhead; n > 0 {
		return n
	}
	return 0
}
