package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/ledger"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/signedqr"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/viewer"
)

var (
	signKeyFile  string
	signOutFile  string
	signLevel    string
	signDataFile string
	signShow     bool
	signNoLedger bool
)

var signCmd = &cobra.Command{
	Use:   "sign [data]",
	Short: "Sign text and render it as a QR code",
	Long: `Sign text with an Ed25519 key and write the signed record as a QR PNG.

The key is read from --key, or from ~/.signedqr/keys/signing.jwk when present.
Without either an ephemeral key is generated; such a record verifies, but
nobody can pin its signer afterwards.

Data comes from the argument, from --data-file, or from stdin when the
argument is "-".`,
	Example: `  # Sign a message with the default key
  signedqr sign "Secure message: Hello from Information Security Group 7!"

  # Use high error correction and show the code in the terminal
  signedqr sign --level H --show "printed on a label"

  # Sign the contents of a file
  signedqr sign --data-file note.txt --out note.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readSignData(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		p, err := newProtocol(signLevel)
		if err != nil {
			return err
		}
		kp, ephemeral, err := signingKey(p, signKeyFile)
		if err != nil {
			return err
		}
		if ephemeral {
			logger.Warn().Msg("no signing key found, using an ephemeral key")
		}

		rec, err := p.Create(data, kp)
		if err != nil {
			if errors.Is(err, signedqr.ErrDataTooLong) {
				return fmt.Errorf("%w (use a lower --level or shorter data)", err)
			}
			return err
		}
		if err := p.RenderToFile(rec, signOutFile); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Signed QR saved to %s (level %s)\n", signOutFile, p.Level())
		fmt.Fprintln(out, signedqr.ToTransportText(rec))

		if signShow {
			if err := viewer.Display(out, signOutFile, "", viewer.Options{}); err != nil {
				return err
			}
		}

		if cfg.Ledger.Enabled && !signNoLedger {
			store, err := openLedger()
			if err != nil {
				return err
			}
			entry, err := store.Add(rec, p.Level(), signOutFile)
			switch {
			case errors.Is(err, ledger.ErrDuplicate):
				logger.Info().Msg("record already in ledger")
			case err != nil:
				return err
			default:
				logger.Debug().Str("entry", entry.ID.String()).Msg("ledger entry added")
			}
		}
		return nil
	},
}

func readSignData(stdin io.Reader, args []string) (string, error) {
	switch {
	case signDataFile != "" && len(args) > 0:
		return "", errors.New("pass data either as an argument or with --data-file, not both")
	case signDataFile != "":
		b, err := os.ReadFile(signDataFile)
		if err != nil {
			return "", fmt.Errorf("failed to read data file: %w", err)
		}
		return string(b), nil
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSuffix(string(b), "\n"), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errors.New("no data given")
	}
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&signKeyFile, "key", "", "Private JWK to sign with")
	signCmd.Flags().StringVarP(&signOutFile, "out", "o", "signed_qr.png", "Output PNG path")
	signCmd.Flags().StringVar(&signLevel, "level", "", "Error correction level L, M, Q or H (default from config)")
	signCmd.Flags().StringVar(&signDataFile, "data-file", "", "Read data from this file")
	signCmd.Flags().BoolVar(&signShow, "show", false, "Print the QR code in the terminal")
	signCmd.Flags().BoolVar(&signNoLedger, "no-ledger", false, "Do not record this signature in the ledger")
}
