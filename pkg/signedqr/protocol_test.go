package signedqr

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

const groupMessage = "Secure message: Hello from Information Security Group 7!"

func newProtocol(t *testing.T) *Protocol {
	t.Helper()
	p, err := NewDefault()
	require.NoError(t, err)
	return p
}

func newKeyPair(t *testing.T) *signature.KeyPair {
	t.Helper()
	kp, err := signature.NewEd25519Engine(nil).GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestNew_Defaults(t *testing.T) {
	p := newProtocol(t)
	assert.Equal(t, symbol.LevelM, p.Level())
	assert.Equal(t, symbol.DefaultWidth, p.width)
	assert.Equal(t, symbol.DefaultHeight, p.height)
	assert.NotNil(t, p.Engine())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: symbol.Level(12)})
	assert.ErrorIs(t, err, symbol.ErrInvalidLevel)

	_, err = New(Config{Width: -5})
	assert.ErrorIs(t, err, symbol.ErrInvalidDimensions)
}

func TestCreateVerify_RoundTrip(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)

	for _, data := range []string{groupMessage, "a", "Përshëndetje ✓ 日本語", `quotes " and \ backslashes`, "  "} {
		rec, err := p.Create(data, kp)
		require.NoError(t, err)
		assert.Equal(t, data, rec.Data())
		assert.Len(t, rec.Signature(), 88)
		assert.Len(t, rec.PublicKey(), 60)

		ok, err := p.Verify(rec)
		require.NoError(t, err)
		assert.True(t, ok, "record for %q must verify", data)

		parsed, err := FromTransportText(ToTransportText(rec))
		require.NoError(t, err)
		assert.Equal(t, rec, parsed)
	}
}

func TestCreate_SameInputSameRecord(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)

	a, err := p.Create(groupMessage, kp)
	require.NoError(t, err)
	b, err := p.Create(groupMessage, kp)
	require.NoError(t, err)

	// Ed25519 signatures are deterministic.
	assert.Equal(t, ToTransportText(a), ToTransportText(b))
}

func TestCreate_Errors(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)
	other := newKeyPair(t)

	tests := []struct {
		name string
		data string
		kp   *signature.KeyPair
		code string
	}{
		{"empty data", "", kp, ErrCodeDataEmpty},
		{"blank data", " \t\n ", kp, ErrCodeDataEmpty},
		{"invalid utf8", "abc\xff", kp, ErrCodeDataNotUTF8},
		{"too long", strings.Repeat("a", p.MaxDataLength()+1), kp, ErrCodeDataTooLong},
		{"nil pair", "x", nil, ErrCodeKeyMissing},
		{"no private half", "x", &signature.KeyPair{Public: kp.Public}, ErrCodeKeyMissing},
		{"no public half", "x", &signature.KeyPair{Private: kp.Private}, ErrCodeKeyMissing},
		{"short private", "x", &signature.KeyPair{Private: kp.Private[:10], Public: kp.Public}, ErrCodeKeyInvalid},
		{"mismatched halves", "x", &signature.KeyPair{Private: kp.Private, Public: other.Public}, ErrCodeKeyMismatch},
		{"escaped data overflows", strings.Repeat(`"`, 1500), kp, ErrCodePayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.Create(tt.data, tt.kp)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetErrorCode(err))
			assert.True(t, rec.IsZero())
		})
	}
}

func TestCreate_ErrorKinds(t *testing.T) {
	p := newProtocol(t)

	_, err := p.Create("", newKeyPair(t))
	assert.ErrorIs(t, err, ErrDataEmpty)
	assert.Equal(t, KindValidation, GetErrorKind(err))

	_, err = p.Create(strings.Repeat(`"`, 1500), newKeyPair(t))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Equal(t, KindCapacity, GetErrorKind(err))
}

func TestCapacity(t *testing.T) {
	p := newProtocol(t)

	// {"data":"","signature":"<88>","publicKey":"<60>"}
	assert.Equal(t, 189, p.Overhead())
	assert.Equal(t, symbol.LevelM.Capacity()-189, p.MaxDataLength())

	for _, level := range symbol.Levels {
		lp, err := New(Config{Level: level})
		require.NoError(t, err)
		assert.Equal(t, level.Capacity()-lp.Overhead(), lp.MaxDataLength())
	}
}

func TestCreate_AtCapacityRenders(t *testing.T) {
	// Version 40 needs a few pixels per module to scan back reliably.
	p, err := New(Config{Level: symbol.LevelH, Width: 800, Height: 800})
	require.NoError(t, err)
	kp := newKeyPair(t)

	rec, err := p.Create(strings.Repeat("a", p.MaxDataLength()), kp)
	require.NoError(t, err)
	assert.Len(t, ToTransportText(rec), symbol.LevelH.Capacity())

	img, err := p.Render(rec)
	require.NoError(t, err)
	ok, err := p.ScanAndVerify(img)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.Create(strings.Repeat("a", p.MaxDataLength()+1), kp)
	assert.ErrorIs(t, err, ErrDataTooLong)
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func mutateBase64(s string, i int) string {
	b := []byte(s)
	if idx := strings.IndexByte(base64Alphabet, b[i]); idx >= 0 {
		b[i] = base64Alphabet[(idx+1)%len(base64Alphabet)]
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestVerify_AnySingleCharacterChangeFails(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)

	for i := range rec.data {
		b := []byte(rec.data)
		b[i] ^= 0x01
		tampered := SignedRecord{data: string(b), signature: rec.signature, publicKey: rec.publicKey}
		ok, err := p.Verify(tampered)
		require.NoError(t, err)
		assert.False(t, ok, "data changed at %d", i)
	}
	for i := range rec.signature {
		tampered := SignedRecord{data: rec.data, signature: mutateBase64(rec.signature, i), publicKey: rec.publicKey}
		ok, err := p.Verify(tampered)
		require.NoError(t, err)
		assert.False(t, ok, "signature changed at %d", i)
	}
	for i := range rec.publicKey {
		tampered := SignedRecord{data: rec.data, signature: rec.signature, publicKey: mutateBase64(rec.publicKey, i)}
		ok, err := p.Verify(tampered)
		require.NoError(t, err)
		assert.False(t, ok, "public key changed at %d", i)
	}
}

func TestVerify_SubstitutedKeyFails(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)

	otherKey, err := p.Engine().EncodePublicKey(newKeyPair(t).Public)
	require.NoError(t, err)

	swapped, err := NewRecord(RawFields{Data: rec.Data(), Signature: rec.Signature(), PublicKey: otherKey})
	require.NoError(t, err)

	result, err := p.VerifyWithOptions(swapped, VerifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	assert.ErrorIs(t, result.Reason, ErrSignatureInvalid)
	assert.Equal(t, KindVerification, result.Reason.Kind())
}

func TestVerify_UndecodableFieldsFail(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)

	tests := []struct {
		name  string
		rec   SignedRecord
		field string
	}{
		{"key too short", SignedRecord{data: rec.data, signature: rec.signature, publicKey: "YQ=="}, FieldPublicKey},
		{"key empty", SignedRecord{data: rec.data, signature: rec.signature}, FieldPublicKey},
		{"signature truncated", SignedRecord{data: rec.data, signature: rec.signature[:40], publicKey: rec.publicKey}, FieldSignature},
		{"signature empty", SignedRecord{data: rec.data, publicKey: rec.publicKey}, FieldSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.Verify(tt.rec)
			require.NoError(t, err)
			assert.False(t, ok)

			result, err := p.VerifyWithOptions(tt.rec, VerifyOptions{})
			require.NoError(t, err)
			assert.Equal(t, StateRejected, result.State)
			require.NotNil(t, result.Reason)
			if tt.field == FieldSignature && tt.rec.signature != "" {
				// Base64 of 30 bytes decodes; the length is caught by the verifier.
				assert.Equal(t, ErrCodeSignatureInvalid, result.Reason.Code)
				return
			}
			assert.Equal(t, ErrCodeFieldEncoding, result.Reason.Code)
			assert.Equal(t, tt.field, result.Reason.Field)
		})
	}
}

func TestVerify_ZeroRecord(t *testing.T) {
	p := newProtocol(t)
	ok, err := p.Verify(SignedRecord{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_ExpectedKey(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)
	rec, err := p.Create(groupMessage, kp)
	require.NoError(t, err)

	result, err := p.VerifyWithOptions(rec, VerifyOptions{ExpectedKey: kp.Public})
	require.NoError(t, err)
	assert.True(t, result.Trusted())
	assert.Nil(t, result.Reason)

	result, err = p.VerifyWithOptions(rec, VerifyOptions{ExpectedKey: newKeyPair(t).Public})
	require.NoError(t, err)
	assert.False(t, result.Trusted())
	assert.ErrorIs(t, result.Reason, ErrKeyNotPinned)
}

func TestEndToEnd(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)

	rec, err := p.Create(groupMessage, kp)
	require.NoError(t, err)

	img, err := p.Render(rec)
	require.NoError(t, err)
	text, err := p.codec.Decode(img)
	require.NoError(t, err)
	assert.Equal(t, ToTransportText(rec), text, "decoded text must be byte-identical to the wire text")

	path := filepath.Join(t.TempDir(), "signed_qr.png")
	require.NoError(t, p.RenderToFile(rec, path))

	scanned, err := p.ScanFile(path)
	require.NoError(t, err)
	assert.Equal(t, rec, scanned)

	result, err := p.ScanFileAndVerify(path, VerifyOptions{ExpectedKey: kp.Public})
	require.NoError(t, err)
	assert.Equal(t, StateTrusted, result.State)
	assert.Equal(t, groupMessage, result.Record.Data())
}

func TestEndToEnd_TamperedSymbol(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)

	t.Run("decoded text edited", func(t *testing.T) {
		img, err := p.Render(rec)
		require.NoError(t, err)
		text, err := p.codec.Decode(img)
		require.NoError(t, err)

		edited := strings.Replace(text, "Hello", "Jello", 1)
		require.NotEqual(t, text, edited)
		forged, err := FromTransportText(edited)
		require.NoError(t, err)

		ok, err := p.Verify(forged)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	forged, err := NewRecord(RawFields{
		Data:      strings.Replace(rec.Data(), "Hello", "Jello", 1),
		Signature: rec.Signature(),
		PublicKey: rec.PublicKey(),
	})
	require.NoError(t, err)

	img, err := p.Render(forged)
	require.NoError(t, err)

	ok, err := p.ScanAndVerify(img)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScan_FreshKeys(t *testing.T) {
	p := newProtocol(t)

	for i := 0; i < 200; i++ {
		rec, err := p.Create(fmt.Sprintf("%s #%d", groupMessage, i), newKeyPair(t))
		require.NoError(t, err)
		img, err := p.Render(rec)
		require.NoError(t, err)

		scanned, err := p.Scan(img)
		require.NoError(t, err, "record %d", i)
		require.Equal(t, rec, scanned, "record %d", i)
	}
}

func TestRender_Oversized(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)

	big, err := NewRecord(RawFields{
		Data:      strings.Repeat("a", symbol.LevelM.Capacity()),
		Signature: rec.Signature(),
		PublicKey: rec.PublicKey(),
	})
	require.NoError(t, err)

	img, err := p.Render(big)
	assert.Nil(t, img)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.ErrorIs(t, err, symbol.ErrTextTooLong)
	assert.Equal(t, KindCapacity, GetErrorKind(err))
}

func TestScan_Errors(t *testing.T) {
	p := newProtocol(t)

	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	_, err := p.ScanAndVerify(blank)
	assert.ErrorIs(t, err, ErrSymbolNotFound)
	assert.Equal(t, KindTransport, GetErrorKind(err))

	plain, err := symbol.NewQRCodec().Encode("just some text", symbol.LevelM, 300, 300)
	require.NoError(t, err)
	_, err = p.Scan(plain)
	assert.ErrorIs(t, err, ErrMalformed)

	badKey, err := symbol.NewQRCodec().Encode(`{"data":"x","signature":"YQ==","publicKey":"**"}`, symbol.LevelM, 300, 300)
	require.NoError(t, err)
	ok, err := p.ScanAndVerify(badKey)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFieldEncoding)

	_, err = p.ScanFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrSymbolUnreadable)
}

func TestVerifyAll(t *testing.T) {
	p := newProtocol(t)
	kp := newKeyPair(t)

	var recs []SignedRecord
	for _, data := range []string{"one", "two", "three", "four"} {
		rec, err := p.Create(data, kp)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	recs[2] = SignedRecord{data: "tampered", signature: recs[2].signature, publicKey: recs[2].publicKey}

	results, err := p.VerifyAll(context.Background(), recs, VerifyOptions{})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, recs[i], r.Record)
		assert.Equal(t, i != 2, r.Trusted(), "record %d", i)
	}
}

func TestVerifyAll_Cancelled(t *testing.T) {
	p := newProtocol(t)
	rec, err := p.Create("x", newKeyPair(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.VerifyAll(ctx, []SignedRecord{rec, rec}, VerifyOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProtocol_Logs(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	p, err := New(Config{Logger: &logger})
	require.NoError(t, err)

	rec, err := p.Create(groupMessage, newKeyPair(t))
	require.NoError(t, err)
	_, err = p.Verify(rec)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"component":"signedqr"`)
	assert.Contains(t, out, `"message":"record created"`)
	assert.Contains(t, out, `"state":"trusted"`)
	assert.NotContains(t, out, groupMessage)
}

// mockEngine wraps a real engine so individual calls can be made to fail.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) GenerateKeyPair() (*signature.KeyPair, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signature.KeyPair), args.Error(1)
}

func (m *mockEngine) Sign(data []byte, priv ed25519.PrivateKey) ([]byte, error) {
	args := m.Called(data, priv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockEngine) Verify(data, sig []byte, pub ed25519.PublicKey) (bool, error) {
	args := m.Called(data, sig, pub)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) EncodePublicKey(pub ed25519.PublicKey) (string, error) {
	args := m.Called(pub)
	return args.String(0), args.Error(1)
}

func (m *mockEngine) DecodePublicKey(text string) (ed25519.PublicKey, error) {
	args := m.Called(text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ed25519.PublicKey), args.Error(1)
}

func (m *mockEngine) EncodeSignature(sig []byte) string {
	return m.Called(sig).String(0)
}

func (m *mockEngine) DecodeSignature(text string) ([]byte, error) {
	args := m.Called(text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newMockProtocol(t *testing.T) (*Protocol, *mockEngine) {
	t.Helper()
	eng := signature.NewEd25519Engine(nil)
	placeholder, err := eng.EncodePublicKey(make(ed25519.PublicKey, ed25519.PublicKeySize))
	require.NoError(t, err)

	m := &mockEngine{}
	m.On("EncodePublicKey", mock.Anything).Return(placeholder, nil).Maybe()
	m.On("EncodeSignature", mock.Anything).Return(eng.EncodeSignature(make([]byte, ed25519.SignatureSize))).Maybe()

	p, err := New(Config{Engine: m})
	require.NoError(t, err)
	return p, m
}

func TestCreate_ProviderFault(t *testing.T) {
	p, m := newMockProtocol(t)
	m.On("Sign", mock.Anything, mock.Anything).Return(nil, errors.New("token removed"))

	_, err := p.Create(groupMessage, newKeyPair(t))
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, KindInternal, GetErrorKind(err))
	m.AssertExpectations(t)
}

func TestVerify_ProviderFault(t *testing.T) {
	p, m := newMockProtocol(t)
	pub := newKeyPair(t).Public
	m.On("DecodePublicKey", "Yg==").Return(pub, nil)
	m.On("DecodeSignature", "YQ==").Return([]byte("a"), nil)
	m.On("Verify", mock.Anything, mock.Anything, pub).Return(false, errors.New("hsm offline"))

	rec := SignedRecord{data: "x", signature: "YQ==", publicKey: "Yg=="}
	ok, err := p.Verify(rec)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInternal)
	m.AssertExpectations(t)
}

func TestVerify_ProviderUnavailableOnDecode(t *testing.T) {
	p, m := newMockProtocol(t)
	m.On("DecodePublicKey", "Yg==").Return(nil, signature.ErrProviderUnavailable)

	_, err := p.Verify(SignedRecord{data: "x", signature: "YQ==", publicKey: "Yg=="})
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, signature.ErrProviderUnavailable)
}

func TestNew_OverheadFault(t *testing.T) {
	m := &mockEngine{}
	m.On("EncodePublicKey", mock.Anything).Return("", errors.New("no encoder"))

	_, err := New(Config{Engine: m})
	assert.ErrorIs(t, err, ErrInternal)
}
