package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPackageJSON = `{
  "name": "single-root-dep",
  "version": "1.0.0",
  "dependencies": {
    "left-pad": "^1.3.0"
  }
}
`
	testPackageLock = `{
  "name": "single-root-dep",
  "version": "1.0.0",
  "lockfileVersion": 1,
  "requires": true,
  "dependencies": {
    "left-pad": {
      "version": "1.3.0",
      "resolved": "https://registry.yarnpkg.com/left-pad/-/left-pad-1.3.0.tgz",
      "integrity": "sha1-QXCBC941kIyJbgQKFThXxMKqGsI="
    }
  }
}
`
	testYarnLock = `# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.
# yarn lockfile v1


left-pad@^1.3.0:
  version "1.3.0"
  resolved "https://registry.yarnpkg.com/left-pad/-/left-pad-1.3.0.tgz#4170810bde35908c896e040a153857c4c2aa1ac2"
  integrity sha1-QXCBC941kIyJbgQKFThXxMKqGsI=
`
)

// writeProject creates a project directory holding the given files.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOCKBRIDGE_CACHE_DIR", t.TempDir())
	t.Setenv("NETRC", filepath.Join(t.TempDir(), "netrc"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	// flag variables outlive a single execution
	t.Cleanup(func() {
		toYarnStdout, toYarnForce = false, false
		toNpmStdout, toNpmForce = false, false
		verbose, registryURL, concurrency, noCache = false, "", 0, false
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, want := range []string{"lockbridge", "to-yarn", "to-npm", "verify"} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestToYarnCommand(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"package.json":      testPackageJSON,
		"package-lock.json": testPackageLock,
	})

	_, err := execute(t, "to-yarn", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "yarn.lock"))
	require.NoError(t, err)
	assert.Equal(t, testYarnLock, string(data))
}

func TestToYarnRefusesOverwrite(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"package.json":      testPackageJSON,
		"package-lock.json": testPackageLock,
		"yarn.lock":         "stale",
	})

	_, err := execute(t, "to-yarn", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "to-yarn", "--force", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "yarn.lock"))
	require.NoError(t, err)
	assert.Equal(t, testYarnLock, string(data))
}

func TestToNpmCommandStdout(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"package.json": testPackageJSON,
		"yarn.lock":    testYarnLock,
	})

	out, err := execute(t, "to-npm", "--stdout", dir)
	require.NoError(t, err)
	assert.Equal(t, testPackageLock, out)

	_, err = os.Stat(filepath.Join(dir, "package-lock.json"))
	assert.True(t, os.IsNotExist(err), "--stdout must not write the file")
}

func TestMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "foo")

	for _, sub := range []string{"to-yarn", "to-npm"} {
		_, err := execute(t, sub, "--stdout", dir)
		require.Error(t, err, sub)
		assert.Contains(t, err.Error(), "no such file or directory", sub)
	}
}

func TestVerifyCommand(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"package.json":      testPackageJSON,
		"package-lock.json": testPackageLock,
		"yarn.lock":         testYarnLock,
	})

	out, err := execute(t, "verify", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "in sync")

	stale := strings.Replace(testYarnLock, `version "1.3.0"`, `version "1.2.0"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte(stale), 0o644))

	out, err = execute(t, "verify", dir)
	require.Error(t, err)
	assert.Contains(t, out, "left-pad@1.3.0")
	assert.Contains(t, out, "left-pad@1.2.0")
}
