package cmd

import (
	"github.com/spf13/cobra"

	"github.com/anthr76/lockbridge/internal/npmlock"
)

var (
	toNpmStdout bool
	toNpmForce  bool
)

var toNpmCmd = &cobra.Command{
	Use:   "to-npm [directory]",
	Short: "Generate package-lock.json from yarn.lock",
	Long: `Generate a package-lock.json (lockfileVersion 1) from package.json and
yarn.lock.

Packages are hoisted the way npm lays out node_modules, and dev and
optional flags are derived from package.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToNpm,
}

func init() {
	rootCmd.AddCommand(toNpmCmd)
	toNpmCmd.Flags().BoolVar(&toNpmStdout, "stdout", false, "print the lockfile instead of writing it")
	toNpmCmd.Flags().BoolVarP(&toNpmForce, "force", "f", false, "overwrite an existing package-lock.json")
}

func runToNpm(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)

	c, err := newConverter(cmd, dir)
	if err != nil {
		return err
	}
	out, err := c.YarnToNpm(cmd.Context(), dir)
	if err != nil {
		return err
	}
	return writeOutput(cmd, dir, npmlock.DefaultLockfile, out, toNpmStdout, toNpmForce)
}
