package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthr76/lockbridge/internal/convert"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Verify package-lock.json and yarn.lock agree",
	Long: `Verify that package-lock.json and yarn.lock describe the same packages.

This command checks for:
- Packages only one lockfile contains
- Packages whose hashes differ between the lockfiles

No network lookups are made.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)

	c := convert.New(nil, convert.WithLogger(loggerFromContext(cmd.Context())))
	report, err := c.Verify(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.OK() {
		fmt.Fprintln(out, "Lockfiles are in sync")
		return nil
	}

	if len(report.MissingFromYarn) > 0 {
		fmt.Fprintln(out, "Missing from yarn.lock:")
		for _, id := range report.MissingFromYarn {
			fmt.Fprintf(out, "  - %s\n", id)
		}
	}
	if len(report.MissingFromNpm) > 0 {
		fmt.Fprintln(out, "Missing from package-lock.json:")
		for _, id := range report.MissingFromNpm {
			fmt.Fprintf(out, "  - %s\n", id)
		}
	}
	if len(report.Mismatched) > 0 {
		fmt.Fprintln(out, "Mismatched:")
		for _, m := range report.Mismatched {
			fmt.Fprintf(out, "  - %s: %s\n", m.Package, m.Reason)
		}
	}

	return fmt.Errorf("lockfiles are out of sync")
}
