package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/signedqr"
)

var (
	verifyText      string
	verifyExpectKey string
	verifyJSON      bool
)

// verifyOutput is the --json report.
type verifyOutput struct {
	Trusted     bool   `json:"trusted"`
	State       string `json:"state"`
	Code        string `json:"code,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Message     string `json:"message,omitempty"`
	Data        string `json:"data,omitempty"`
	KeyID       string `json:"keyId,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify [image]",
	Short: "Scan a QR code and verify its signature",
	Long: `Scan a QR image, or take wire text with --text, and verify the record.

Exit status is 0 for a trusted record, 2 for a record that parses but does
not verify (tampered, or signed by a key other than --expect-key) and 1 when
the input is not a signed record at all.`,
	Example: `  # Verify a scanned code
  signedqr verify signed_qr.png

  # Require a specific signer
  signedqr verify --expect-key group7.pub.jwk signed_qr.png

  # Verify wire text and emit JSON
  signedqr verify --json --text '{"data":"...","signature":"...","publicKey":"..."}'`,
	Args: func(cmd *cobra.Command, args []string) error {
		if verifyText == "" && len(args) != 1 {
			return errors.New("an image path or --text is required")
		}
		if verifyText != "" && len(args) > 0 {
			return errors.New("pass an image path or --text, not both")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProtocol("")
		if err != nil {
			return err
		}

		var opts signedqr.VerifyOptions
		if verifyExpectKey != "" {
			pub, err := signature.LoadPublicJWK(verifyExpectKey)
			if err != nil {
				return err
			}
			opts.ExpectedKey = pub
		}

		var result *signedqr.VerifyResult
		if verifyText != "" {
			rec, perr := signedqr.FromTransportText(verifyText)
			if perr != nil {
				return reportInvalid(cmd.OutOrStdout(), perr)
			}
			result, err = p.VerifyWithOptions(rec, opts)
		} else {
			result, err = p.ScanFileAndVerify(args[0], opts)
		}
		if err != nil {
			if signedqr.GetErrorKind(err) == signedqr.KindInternal {
				return err
			}
			return reportInvalid(cmd.OutOrStdout(), err)
		}
		return reportResult(cmd.OutOrStdout(), p, result)
	},
}

// reportInvalid handles input that never became a record.
func reportInvalid(w io.Writer, err error) error {
	if verifyJSON {
		out := verifyOutput{State: "invalid", Code: signedqr.GetErrorCode(err), Message: err.Error()}
		out.Kind = signedqr.GetErrorKind(err).String()
		if err := writeJSON(w, out); err != nil {
			return err
		}
	}
	return fmt.Errorf("not a signed record: %w", err)
}

func reportResult(w io.Writer, p *signedqr.Protocol, result *signedqr.VerifyResult) error {
	out := verifyOutput{
		Trusted: result.Trusted(),
		State:   result.State.String(),
		Data:    result.Record.Data(),
	}
	if result.Reason != nil {
		out.Code = result.Reason.Code
		out.Kind = result.Reason.Kind().String()
		out.Message = result.Reason.Message
	}
	if pub, err := p.Engine().DecodePublicKey(result.Record.PublicKey()); err == nil {
		if kid, err := signature.KeyID(pub); err == nil {
			out.KeyID = kid
			out.Fingerprint = signature.Fingerprint(pub)
		}
	}

	if verifyJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else if out.Trusted {
		fmt.Fprintln(w, "✅ TRUSTED")
		fmt.Fprintf(w, "   Data:   %s\n", out.Data)
		fmt.Fprintf(w, "   Signer: %s\n", out.Fingerprint)
	} else {
		fmt.Fprintf(w, "❌ REJECTED: %s (%s)\n", out.Message, out.Code)
	}

	if !out.Trusted {
		return errRejected
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyText, "text", "", "Verify wire text instead of an image")
	verifyCmd.Flags().StringVar(&verifyExpectKey, "expect-key", "", "Public JWK the record must be signed with")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Output the result as JSON")
}
