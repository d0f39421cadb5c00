package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantName    string
		wantReqs    []Dependency
		wantBundled []string
		wantErr     bool
	}{
		{
			name: "dependencies keep file order",
			content: `{
  "name": "app",
  "version": "1.0.0",
  "dependencies": {"zed": "^1.0.0", "alpha": "~2.0.0"},
  "devDependencies": {"tap": "^14.0.0"}
}`,
			wantName: "app",
			wantReqs: []Dependency{
				{Name: "zed", Range: "^1.0.0"},
				{Name: "alpha", Range: "~2.0.0"},
				{Name: "tap", Range: "^14.0.0", Dev: true},
			},
		},
		{
			name: "optional wins over dependencies",
			content: `{
  "name": "app",
  "dependencies": {"fsevents": "^2.0.0", "a": "1.0.0"},
  "optionalDependencies": {"fsevents": "^2.0.0"}
}`,
			wantName: "app",
			wantReqs: []Dependency{
				{Name: "a", Range: "1.0.0"},
				{Name: "fsevents", Range: "^2.0.0", Optional: true},
			},
		},
		{
			name: "dev duplicated in dependencies is prod",
			content: `{
  "name": "app",
  "dependencies": {"a": "^1.0.0"},
  "devDependencies": {"a": "^1.0.0"}
}`,
			wantName: "app",
			wantReqs: []Dependency{{Name: "a", Range: "^1.0.0"}},
		},
		{
			name: "bundled list",
			content: `{
  "name": "app",
  "dependencies": {"a": "^1.0.0", "b": "^1.0.0"},
  "bundledDependencies": ["b"]
}`,
			wantName:    "app",
			wantReqs:    []Dependency{{Name: "a", Range: "^1.0.0"}, {Name: "b", Range: "^1.0.0"}},
			wantBundled: []string{"b"},
		},
		{
			name: "bundle true",
			content: `{
  "name": "app",
  "dependencies": {"a": "^1.0.0", "b": "^1.0.0"},
  "bundleDependencies": true
}`,
			wantName:    "app",
			wantReqs:    []Dependency{{Name: "a", Range: "^1.0.0"}, {Name: "b", Range: "^1.0.0"}},
			wantBundled: []string{"a", "b"},
		},
		{
			name:    "invalid json",
			content: `{"name": `,
			wantErr: true,
		},
		{
			name:    "dependencies not an object",
			content: `{"dependencies": ["a"]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, m.Name)
			assert.Equal(t, tt.wantReqs, m.Requirements())
			assert.Equal(t, tt.wantBundled, m.BundledDependencies)
			for _, b := range tt.wantBundled {
				assert.True(t, m.IsBundled(b))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"name": "app", "version": "0.1.0", "dependencies": {"a": "^1.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(content), 0o644))

	m, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", m.Version)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "no such file or directory")
}
