package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// writeOutput prints data or writes it to dir/name. An existing file is
// only replaced with force.
func writeOutput(cmd *cobra.Command, dir, name string, data []byte, stdout, force bool) error {
	if stdout {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	path := filepath.Join(dir, name)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	loggerFromContext(cmd.Context()).Infof("Wrote %s", path)
	return nil
}
