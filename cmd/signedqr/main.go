// Package main is the entry point for the signedqr CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/internal/config"
	"github.com/VeraLlugiqi/information-security-gr7/internal/logging"
)

// errRejected signals a record that parsed but failed verification. main
// exits with status 2 for it and 1 for every other error.
var errRejected = errors.New("record rejected")

var (
	configPath string
	verbose    bool
	logFile    string

	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "signedqr",
	Short: "Sign text into QR codes and verify them",
	Long: `signedqr binds text to an Ed25519 signature and carries it in a QR code.

A scanned code verifies only if its data, signature and public key are exactly
as signed. Verification proves possession of the embedded key, not identity:
use --expect-key to pin the signer you trust.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		file := cfg.Log.File
		if logFile != "" {
			file = logFile
		}
		l, closer, err := logging.New(logging.Options{
			Level:   cfg.Log.Level,
			Verbose: verbose,
			File:    file,
			Console: cfg.Log.Console,
			Writer:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		logger = l
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeLog()
	},
}

func closeLog() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.signedqr/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, with rotation")
}

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err == nil {
		return
	}
	if errors.Is(err, errRejected) {
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
