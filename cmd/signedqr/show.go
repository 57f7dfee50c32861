package main

import (
	"github.com/spf13/cobra"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/viewer"
)

var (
	showColumns int
	showInvert  bool
	showLabel   string
)

var showCmd = &cobra.Command{
	Use:   "show [image]",
	Short: "Print a QR image in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := showLabel
		if label == "" {
			label = args[0]
		}
		return viewer.Display(cmd.OutOrStdout(), args[0], label, viewer.Options{
			Columns: showColumns,
			Invert:  showInvert,
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().IntVar(&showColumns, "columns", 0, "Maximum output width (default terminal width)")
	showCmd.Flags().BoolVar(&showInvert, "invert", false, "Invert colors for dark terminals")
	showCmd.Flags().StringVar(&showLabel, "label", "", "Heading printed above the code (default the file name)")
}
