package cmd

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("lockbridge version " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
