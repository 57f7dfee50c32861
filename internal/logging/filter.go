package logging

import (
	"io"
	"regexp"
)

// RedactedValue replaces private key material in log output.
const RedactedValue = "[REDACTED]"

var redactions = []struct {
	pattern *regexp.Regexp
	with    []byte
}{
	// JWK private scalar.
	{regexp.MustCompile(`"d"\s*:\s*"[A-Za-z0-9_-]+"`), []byte(`"d":"` + RedactedValue + `"`)},
	// PEM private key blocks.
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`), []byte(RedactedValue)},
}

// FilteringWriter redacts private key material before it reaches the
// underlying writer. Private keys must never land in a log file.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success even when the
// filtered output is shorter.
func (f *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := f.w.Write(Redact(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Redact returns p with private key material replaced.
func Redact(p []byte) []byte {
	for _, r := range redactions {
		if r.pattern.Match(p) {
			p = r.pattern.ReplaceAll(p, r.with)
		}
	}
	return p
}
