package signedqr

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

// Config configures a Protocol. Zero fields select defaults.
type Config struct {
	// Engine signs and verifies. Nil selects signature.Default().
	Engine signature.Engine

	// Codec renders and reads symbols. Nil selects a QR codec.
	Codec symbol.Codec

	// Level is the error correction level used for rendering and for the
	// capacity budget. Zero selects symbol.DefaultLevel.
	Level symbol.Level

	// Width and Height are the raster dimensions in pixels. Zero selects
	// symbol.DefaultWidth and symbol.DefaultHeight.
	Width  int
	Height int

	// Logger receives debug events. Nil disables logging.
	Logger *zerolog.Logger
}

// VerifyOptions configures record verification.
type VerifyOptions struct {
	// ExpectedKey pins the signer. When set, a record carrying any other
	// key is rejected even if its signature verifies.
	ExpectedKey ed25519.PublicKey
}

// VerifyResult is the trust decision for one record.
type VerifyResult struct {
	// Record is the record that was checked.
	Record SignedRecord

	// State is StateTrusted or StateRejected.
	State State

	// Reason explains a rejection. It is nil for trusted records.
	Reason *Error
}

// Trusted reports whether the record verified.
func (r *VerifyResult) Trusted() bool {
	return r != nil && r.State == StateTrusted
}

// Protocol creates, transports and verifies signed records.
// It is safe for concurrent use.
type Protocol struct {
	engine   signature.Engine
	codec    symbol.Codec
	level    symbol.Level
	width    int
	height   int
	overhead int
	log      zerolog.Logger
}

// New creates a Protocol from cfg.
func New(cfg Config) (*Protocol, error) {
	p := &Protocol{
		engine: cfg.Engine,
		codec:  cfg.Codec,
		level:  cfg.Level,
		width:  cfg.Width,
		height: cfg.Height,
		log:    zerolog.Nop(),
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("component", "signedqr").Logger()
	}

	if p.engine == nil {
		engine, err := signature.Default()
		if err != nil {
			return nil, WrapError(ErrCodeInternal, "signature provider unavailable", err)
		}
		p.engine = engine
	}
	if p.codec == nil {
		p.codec = symbol.NewQRCodec()
	}
	if p.level == 0 {
		p.level = symbol.DefaultLevel
	}
	if !p.level.Valid() {
		return nil, fmt.Errorf("%w: %v", symbol.ErrInvalidLevel, p.level)
	}
	if p.width == 0 {
		p.width = symbol.DefaultWidth
	}
	if p.height == 0 {
		p.height = symbol.DefaultHeight
	}
	if p.width < 0 || p.height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", symbol.ErrInvalidDimensions, p.width, p.height)
	}

	overhead, err := measureOverhead(p.engine)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "failed to measure record overhead", err)
	}
	p.overhead = overhead
	return p, nil
}

// NewDefault creates a Protocol with the default engine, a QR codec and
// level M.
func NewDefault() (*Protocol, error) {
	return New(Config{})
}

// Level returns the configured error correction level.
func (p *Protocol) Level() symbol.Level {
	return p.level
}

// Engine returns the signing engine in use.
func (p *Protocol) Engine() signature.Engine {
	return p.engine
}

// Create signs data with kp and returns the record. Data must be non-blank
// UTF-8 no longer than MaxDataLength bytes, and kp must be a matching pair.
func (p *Protocol) Create(data string, kp *signature.KeyPair) (SignedRecord, error) {
	if isBlank(data) {
		return SignedRecord{}, fieldError(ErrCodeDataEmpty, FieldData, "data cannot be empty", nil)
	}
	if !utf8.ValidString(data) {
		return SignedRecord{}, fieldError(ErrCodeDataNotUTF8, FieldData, "data is not valid UTF-8", nil)
	}
	if limit := p.MaxDataLength(); len(data) > limit {
		return SignedRecord{}, fieldError(ErrCodeDataTooLong, FieldData,
			fmt.Sprintf("data is %d bytes, level %s allows at most %d", len(data), p.level, limit), nil)
	}
	if err := checkKeyPair(kp); err != nil {
		return SignedRecord{}, err
	}

	sig, err := p.engine.Sign([]byte(data), kp.Private)
	if err != nil {
		return SignedRecord{}, keyError("failed to sign data", err)
	}
	pub, err := p.engine.EncodePublicKey(kp.Public)
	if err != nil {
		return SignedRecord{}, keyError("failed to encode public key", err)
	}

	rec := SignedRecord{
		data:      data,
		signature: p.engine.EncodeSignature(sig),
		publicKey: pub,
	}
	wire := len(Serialize(rec.Fields()))
	if capacity := p.level.Capacity(); wire > capacity {
		return SignedRecord{}, NewError(ErrCodePayloadTooLarge,
			fmt.Sprintf("serialized record is %d bytes, level %s holds %d", wire, p.level, capacity))
	}

	p.log.Debug().
		Int("data_bytes", len(data)).
		Int("wire_bytes", wire).
		Str("level", p.level.String()).
		Msg("record created")
	return rec, nil
}

// isBlank reports whether data is empty or only white space. Data is
// otherwise signed exactly as given.
func isBlank(data string) bool {
	return strings.TrimSpace(data) == ""
}

func checkKeyPair(kp *signature.KeyPair) error {
	if kp == nil {
		return NewError(ErrCodeKeyMissing, "key pair is nil")
	}
	if len(kp.Private) == 0 {
		return NewError(ErrCodeKeyMissing, "private key is missing")
	}
	if len(kp.Public) == 0 {
		return NewError(ErrCodeKeyMissing, "public key is missing")
	}
	if err := signature.CheckKeyPair(kp); err != nil {
		if errors.Is(err, signature.ErrKeyMismatch) {
			return WrapError(ErrCodeKeyMismatch, "public key does not belong to private key", err)
		}
		return WrapError(ErrCodeKeyInvalid, "key pair rejected", err)
	}
	return nil
}

func keyError(msg string, err error) *Error {
	if isKeyFault(err) {
		return WrapError(ErrCodeKeyInvalid, msg, err)
	}
	return WrapError(ErrCodeInternal, msg, err)
}

func isKeyFault(err error) bool {
	return errors.Is(err, signature.ErrNilKey) ||
		errors.Is(err, signature.ErrInvalidPrivateKey) ||
		errors.Is(err, signature.ErrInvalidPublicKey)
}

// isShapeFault reports whether err describes bad record input rather than a
// broken collaborator.
func isShapeFault(err error) bool {
	return errors.Is(err, signature.ErrNilKey) ||
		errors.Is(err, signature.ErrInvalidPublicKey) ||
		errors.Is(err, signature.ErrInvalidSignature) ||
		errors.Is(err, signature.ErrInvalidEncoding)
}

// Verify reports whether rec's signature verifies over its data with its own
// public key. Tampered, truncated or undecodable records yield false with a
// nil error; only collaborator faults are returned as errors.
func (p *Protocol) Verify(rec SignedRecord) (bool, error) {
	result, err := p.VerifyWithOptions(rec, VerifyOptions{})
	if err != nil {
		return false, err
	}
	return result.Trusted(), nil
}

// VerifyWithOptions verifies rec and explains the outcome.
func (p *Protocol) VerifyWithOptions(rec SignedRecord, opts VerifyOptions) (*VerifyResult, error) {
	result := &VerifyResult{Record: rec, State: StateSigned}

	reason, err := p.check(rec, opts)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		result.State = StateRejected
		result.Reason = reason
		p.log.Debug().Str("state", result.State.String()).Str("reason", reason.Code).Msg("record verified")
		return result, nil
	}

	result.State = StateTrusted
	p.log.Debug().Str("state", result.State.String()).Msg("record verified")
	return result, nil
}

func (p *Protocol) check(rec SignedRecord, opts VerifyOptions) (*Error, error) {
	if isBlank(rec.data) {
		return fieldError(ErrCodeEmptyData, FieldData, "record has no data", nil), nil
	}

	pub, err := p.engine.DecodePublicKey(rec.publicKey)
	if err != nil {
		if errors.Is(err, signature.ErrProviderUnavailable) {
			return nil, WrapError(ErrCodeInternal, "failed to decode public key", err)
		}
		return fieldError(ErrCodeFieldEncoding, FieldPublicKey, "public key does not decode", err), nil
	}
	sig, err := p.engine.DecodeSignature(rec.signature)
	if err != nil {
		if errors.Is(err, signature.ErrProviderUnavailable) {
			return nil, WrapError(ErrCodeInternal, "failed to decode signature", err)
		}
		return fieldError(ErrCodeFieldEncoding, FieldSignature, "signature does not decode", err), nil
	}

	if opts.ExpectedKey != nil && !opts.ExpectedKey.Equal(pub) {
		return fieldError(ErrCodeKeyNotPinned, FieldPublicKey, "record is signed by an unexpected key", nil), nil
	}

	ok, err := p.engine.Verify([]byte(rec.data), sig, pub)
	if err != nil {
		if isShapeFault(err) {
			return WrapError(ErrCodeSignatureInvalid, "signature verification failed", err), nil
		}
		return nil, WrapError(ErrCodeInternal, "signature provider failed", err)
	}
	if !ok {
		return NewError(ErrCodeSignatureInvalid, "signature verification failed"), nil
	}
	return nil, nil
}

// Render draws the wire text of rec into a symbol at the configured level.
func (p *Protocol) Render(rec SignedRecord) (image.Image, error) {
	text := ToTransportText(rec)
	img, err := p.codec.Encode(text, p.level, p.width, p.height)
	if err != nil {
		if errors.Is(err, symbol.ErrTextTooLong) {
			return nil, WrapError(ErrCodePayloadTooLarge, "record does not fit the symbol", err)
		}
		return nil, WrapError(ErrCodeInternal, "failed to render symbol", err)
	}

	p.log.Debug().
		Int("wire_bytes", len(text)).
		Str("level", p.level.String()).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("symbol rendered")
	return img, nil
}

// RenderToFile renders rec and writes it to path as PNG.
func (p *Protocol) RenderToFile(rec SignedRecord, path string) error {
	img, err := p.Render(rec)
	if err != nil {
		return err
	}
	if err := symbol.WritePNG(path, img); err != nil {
		return WrapError(ErrCodeInternal, "failed to write symbol image", err)
	}
	p.log.Debug().Str("path", path).Msg("symbol written")
	return nil
}

// Scan reads the symbol in img and parses the record it carries. The record
// is not verified.
func (p *Protocol) Scan(img image.Image) (SignedRecord, error) {
	text, err := p.codec.Decode(img)
	if err != nil {
		return SignedRecord{}, transportError(err)
	}
	rec, err := FromTransportText(text)
	if err != nil {
		p.log.Debug().Str("code", GetErrorCode(err)).Msg("scanned text rejected")
		return SignedRecord{}, err
	}
	return rec, nil
}

// ScanAndVerify scans img and verifies the record. Scan and parse failures
// are returned as errors; a record that parses but does not verify yields
// false.
func (p *Protocol) ScanAndVerify(img image.Image) (bool, error) {
	rec, err := p.Scan(img)
	if err != nil {
		return false, err
	}
	return p.Verify(rec)
}

// ScanFile reads the image file at path and parses the record in it.
func (p *Protocol) ScanFile(path string) (SignedRecord, error) {
	img, err := symbol.ReadImage(path)
	if err != nil {
		return SignedRecord{}, WrapError(ErrCodeSymbolUnreadable, "failed to read image", err)
	}
	return p.Scan(img)
}

// ScanFileAndVerify reads the image at path and verifies its record.
func (p *Protocol) ScanFileAndVerify(path string, opts VerifyOptions) (*VerifyResult, error) {
	rec, err := p.ScanFile(path)
	if err != nil {
		return nil, err
	}
	return p.VerifyWithOptions(rec, opts)
}

func transportError(err error) *Error {
	switch {
	case errors.Is(err, symbol.ErrNotFound):
		return WrapError(ErrCodeSymbolNotFound, "no symbol found in image", err)
	case errors.Is(err, symbol.ErrUnreadable):
		return WrapError(ErrCodeSymbolUnreadable, "symbol could not be read", err)
	default:
		return WrapError(ErrCodeInternal, "symbol reader failed", err)
	}
}

// ToTransportText returns the canonical wire text of rec.
func ToTransportText(rec SignedRecord) string {
	return Serialize(rec.Fields())
}

// FromTransportText parses wire text into a record. The signature and public
// key must be strict base64; whether they decode into a valid key and
// signature is decided by Verify.
func FromTransportText(text string) (SignedRecord, error) {
	f, err := Parse(text)
	if err != nil {
		return SignedRecord{}, err
	}
	return NewRecord(f)
}

// NewRecord builds a record from fields obtained elsewhere, such as a stored
// ledger entry. It applies the same checks as FromTransportText.
func NewRecord(f RawFields) (SignedRecord, error) {
	if isBlank(f.Data) {
		return SignedRecord{}, fieldError(ErrCodeEmptyData, FieldData, "data field is empty", nil)
	}
	if !signature.IsTransportText(f.Signature) {
		return SignedRecord{}, fieldError(ErrCodeFieldEncoding, FieldSignature, "signature is not valid base64", nil)
	}
	if !signature.IsTransportText(f.PublicKey) {
		return SignedRecord{}, fieldError(ErrCodeFieldEncoding, FieldPublicKey, "public key is not valid base64", nil)
	}
	return SignedRecord{data: f.Data, signature: f.Signature, publicKey: f.PublicKey}, nil
}
