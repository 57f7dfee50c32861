package signedqr

// Wire field names.
const (
	FieldData      = "data"
	FieldSignature = "signature"
	FieldPublicKey = "publicKey"
)

// SignedRecord binds data to an Ed25519 signature and the public key that
// verifies it. Values are immutable; obtain them from Create or
// FromTransportText. A SignedRecord is a trust claim, not a trust decision:
// call Verify to decide.
type SignedRecord struct {
	data      string
	signature string
	publicKey string
}

// Data returns the signed text.
func (r SignedRecord) Data() string { return r.data }

// Signature returns the base64 signature over Data.
func (r SignedRecord) Signature() string { return r.signature }

// PublicKey returns the base64 SubjectPublicKeyInfo of the signing key.
func (r SignedRecord) PublicKey() string { return r.publicKey }

// Fields returns the record as wire fields.
func (r SignedRecord) Fields() RawFields {
	return RawFields{Data: r.data, Signature: r.signature, PublicKey: r.publicKey}
}

// IsZero reports whether r is the zero record returned alongside errors.
func (r SignedRecord) IsZero() bool {
	return r == SignedRecord{}
}

// State is the trust state of a record.
type State int

const (
	// StateSigned is a record that has not yet been verified.
	StateSigned State = iota
	// StateTrusted is a record whose signature verified.
	StateTrusted
	// StateRejected is a record that failed verification. It cannot be
	// repaired; a new record has to be created and signed.
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSigned:
		return "signed"
	case StateTrusted:
		return "trusted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
