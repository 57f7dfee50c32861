package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signature"
)

var (
	keyOutPrivate string
	keyOutPublic  string
	keyShowPath   string
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage signing keys",
}

var keyGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a new Ed25519 key pair",
	Long: `Generate a new Ed25519 key pair as JWK files.

The private key is written with mode 0600 and is used by 'signedqr sign'.
The public key can be handed to verifiers for 'signedqr verify --expect-key'.
Both files carry the RFC 7638 thumbprint of the public key as kid.`,
	Example: `  # Generate the default key in ~/.signedqr/keys
  signedqr key gen

  # Generate keys with custom names
  signedqr key gen --out-priv group7.jwk --out-pub group7.pub.jwk`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := signature.Default()
		if err != nil {
			return err
		}
		kp, err := engine.GenerateKeyPair()
		if err != nil {
			return err
		}

		privPath := keyOutPrivate
		if privPath == "" {
			privPath = defaultPrivateKeyPath()
		}
		pubPath := keyOutPublic
		if pubPath == "" {
			pubPath = defaultPublicKeyPath()
		}

		if err := signature.SavePrivateJWK(kp, privPath); err != nil {
			return err
		}
		if err := signature.SavePublicJWK(kp.Public, pubPath); err != nil {
			return err
		}
		kid, err := signature.KeyID(kp.Public)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Private key saved to %s\n", privPath)
		fmt.Fprintf(out, "✅ Public key saved to %s\n", pubPath)
		fmt.Fprintf(out, "🔑 Key ID: %s\n", kid)
		logger.Debug().Str("kid", kid).Str("path", privPath).Msg("key pair generated")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the identifiers of a key",
	Long: `Print the key ID, fingerprint and the publicKey text that records signed
with this key carry. Accepts a public or private JWK.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := keyShowPath
		if path == "" {
			path = defaultPublicKeyPath()
		}
		pub, err := signature.LoadPublicJWK(path)
		if err != nil {
			return err
		}
		engine, err := signature.Default()
		if err != nil {
			return err
		}
		text, err := engine.EncodePublicKey(pub)
		if err != nil {
			return err
		}
		kid, err := signature.KeyID(pub)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Key ID:      %s\n", kid)
		fmt.Fprintf(out, "Fingerprint: %s\n", signature.Fingerprint(pub))
		fmt.Fprintf(out, "publicKey:   %s\n", text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyGenCmd)
	keyCmd.AddCommand(keyShowCmd)

	keyGenCmd.Flags().StringVar(&keyOutPrivate, "out-priv", "", "Output path for the private key (default ~/.signedqr/keys/signing.jwk)")
	keyGenCmd.Flags().StringVar(&keyOutPublic, "out-pub", "", "Output path for the public key (default ~/.signedqr/keys/signing.pub.jwk)")
	keyShowCmd.Flags().StringVar(&keyShowPath, "key", "", "JWK file to inspect (default ~/.signedqr/keys/signing.pub.jwk)")
}
