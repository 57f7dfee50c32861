package signedqr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RawFields are the three wire fields of a record, taken verbatim from or
// written verbatim to the transport text. They carry no validity guarantee.
type RawFields struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

var wireFields = []string{FieldData, FieldSignature, FieldPublicKey}

// Serialize returns the canonical wire text of f: a flat JSON object with the
// fields data, signature and publicKey in that order. HTML escaping is off so
// base64 padding and markup characters travel unescaped; the result is
// identical for identical input.
func Serialize(f RawFields) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings cannot fail.
	_ = enc.Encode(f)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Parse extracts the wire fields from text. Field order is free; unknown
// fields, repeated fields, non-string values, null values and trailing
// content are rejected.
// Parse does not check that signature and key decode; see FromTransportText.
func Parse(text string) (RawFields, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return RawFields{}, NewError(ErrCodeMalformed, "wire text is empty")
	}
	if trimmed[0] != '{' {
		return RawFields{}, NewError(ErrCodeMalformed, "wire text is not an object")
	}

	obj, err := readObject(trimmed)
	if err != nil {
		return RawFields{}, err
	}

	values := make(map[string]string, len(wireFields))
	for _, name := range wireFields {
		raw, ok := obj[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return RawFields{}, fieldError(ErrCodeMissingField, name, fmt.Sprintf("field %q is required", name), nil)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return RawFields{}, fieldError(ErrCodeMalformed, name, fmt.Sprintf("field %q must be a string", name), err)
		}
		values[name] = s
	}
	for name := range obj {
		if _, ok := values[name]; !ok {
			return RawFields{}, fieldError(ErrCodeMalformed, name, fmt.Sprintf("unexpected field %q", name), nil)
		}
	}

	if isBlank(values[FieldData]) {
		return RawFields{}, fieldError(ErrCodeEmptyData, FieldData, "data field is empty", nil)
	}

	return RawFields{
		Data:      values[FieldData],
		Signature: values[FieldSignature],
		PublicKey: values[FieldPublicKey],
	}, nil
}

// readObject splits a single JSON object into its members, keeping each raw
// value. A name that appears twice is rejected.
func readObject(text string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, NewError(ErrCodeMalformed, "wire text is not an object")
	}

	obj := make(map[string]json.RawMessage, len(wireFields))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, WrapError(ErrCodeMalformed, "invalid JSON", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, NewError(ErrCodeMalformed, "invalid JSON")
		}
		if _, seen := obj[name]; seen {
			return nil, fieldError(ErrCodeMalformed, name, fmt.Sprintf("field %q appears more than once", name), nil)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, WrapError(ErrCodeMalformed, "invalid JSON", err)
		}
		obj[name] = raw
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, NewError(ErrCodeMalformed, "record object is not closed")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewError(ErrCodeMalformed, "unexpected content after record object")
	}
	return obj, nil
}
