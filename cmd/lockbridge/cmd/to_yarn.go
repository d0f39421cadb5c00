package cmd

import (
	"github.com/spf13/cobra"

	"github.com/anthr76/lockbridge/internal/yarnlock"
)

var (
	toYarnStdout bool
	toYarnForce  bool
)

var toYarnCmd = &cobra.Command{
	Use:   "to-yarn [directory]",
	Short: "Generate yarn.lock from package-lock.json",
	Long: `Generate a yarn.lock from package.json and package-lock.json.

Packages whose lock entry has no sha1 are looked up in the registry, and
git dependencies on GitHub are looked up by commit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToYarn,
}

func init() {
	rootCmd.AddCommand(toYarnCmd)
	toYarnCmd.Flags().BoolVar(&toYarnStdout, "stdout", false, "print the lockfile instead of writing it")
	toYarnCmd.Flags().BoolVarP(&toYarnForce, "force", "f", false, "overwrite an existing yarn.lock")
}

func runToYarn(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)

	c, err := newConverter(cmd, dir)
	if err != nil {
		return err
	}
	out, err := c.NpmToYarn(cmd.Context(), dir)
	if err != nil {
		return err
	}
	return writeOutput(cmd, dir, yarnlock.DefaultLockfile, out, toYarnStdout, toYarnForce)
}
