package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signedqr"
)

var ledgerJSON bool

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect records signed on this machine",
	Long: `Every 'signedqr sign' is recorded in ~/.signedqr/ledger.json unless the
ledger is disabled. Only public material is stored.`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openLedger()
		if err != nil {
			return err
		}
		entries := store.List()
		if ledgerJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger is empty (%s)\n", store.Path())
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tLEVEL\tDATA\t")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Level, truncate(e.Data, 40))
		}
		return tw.Flush()
	},
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-verify every ledger entry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openLedger()
		if err != nil {
			return err
		}
		p, err := newProtocol("")
		if err != nil {
			return err
		}

		entries := store.List()
		recs := make([]signedqr.SignedRecord, 0, len(entries))
		out := cmd.OutOrStdout()
		rejected := 0
		for _, e := range entries {
			rec, err := e.Record()
			if err != nil {
				fmt.Fprintf(out, "❌ %s: %v\n", e.ID, err)
				rejected++
				continue
			}
			recs = append(recs, rec)
		}

		results, err := p.VerifyAll(cmd.Context(), recs, signedqr.VerifyOptions{})
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Trusted() {
				fmt.Fprintf(out, "✅ %s\n", truncate(r.Record.Data(), 60))
				continue
			}
			rejected++
			fmt.Fprintf(out, "❌ %s: %s\n", truncate(r.Record.Data(), 60), r.Reason.Code)
		}

		fmt.Fprintf(out, "%d entries, %d rejected\n", len(entries), rejected)
		if rejected > 0 {
			return errRejected
		}
		return nil
	},
}

var ledgerRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove one ledger entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry id: %w", err)
		}
		store, err := openLedger()
		if err != nil {
			return err
		}
		if err := store.Remove(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
		return nil
	},
}

var ledgerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all ledger entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openLedger()
		if err != nil {
			return err
		}
		n, err := store.Clear()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerRemoveCmd)
	ledgerCmd.AddCommand(ledgerClearCmd)

	ledgerListCmd.Flags().BoolVar(&ledgerJSON, "json", false, "Output as JSON")
}
