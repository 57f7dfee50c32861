// Package signedqr binds text to an Ed25519 signature and carries the result
// through a QR code.
//
// A SignedRecord holds the data, a base64 signature over its UTF-8 bytes and
// the base64 SubjectPublicKeyInfo of the signing key. Its wire text is a flat
// JSON object:
//
//	{"data":"...","signature":"...","publicKey":"..."}
//
// Records are self-asserted: Verify proves the data was signed by the key the
// record carries, not who owns that key. Pin a key with
// VerifyOptions.ExpectedKey to decide that.
//
// Usage:
//
//	p, err := signedqr.NewDefault()
//	kp, err := p.Engine().GenerateKeyPair()
//	rec, err := p.Create("hello", kp)
//	img, err := p.Render(rec)
//	ok, err := p.ScanAndVerify(img)
package signedqr
