package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCommit = "0123456789abcdef0123456789abcdef01234567"

func TestParseGitRange(t *testing.T) {
	tests := []struct {
		input      string
		wantOK     bool
		owner      string
		repo       string
		committish string
		commit     string
	}{
		{input: "^1.0.0"},
		{input: "1.x || >=2.5.0"},
		{input: "file:../local"},
		{input: "../local"},
		{input: "npm:@scope/pkg@^1.0.0"},
		{input: "owner/repo", wantOK: true, owner: "owner", repo: "repo"},
		{input: "owner/repo#v1.0.0", wantOK: true, owner: "owner", repo: "repo", committish: "v1.0.0"},
		{input: "github:owner/repo#" + testCommit, wantOK: true, owner: "owner", repo: "repo", committish: testCommit, commit: testCommit},
		{input: "git+https://github.com/owner/repo.git#main", wantOK: true, owner: "owner", repo: "repo", committish: "main"},
		{input: "git://github.com/owner/my.repo.git", wantOK: true, owner: "owner", repo: "my.repo"},
		{input: "https://codeload.github.com/owner/repo/tar.gz/" + testCommit, wantOK: true, owner: "owner", repo: "repo", commit: testCommit},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, ok := ParseGitRange(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.owner, ref.Owner)
			assert.Equal(t, tt.repo, ref.Repo)
			assert.Equal(t, tt.committish, ref.Committish)
			assert.Equal(t, tt.commit, ref.Commit)
		})
	}
}

func TestGitRefForms(t *testing.T) {
	ref := &GitRef{Owner: "owner", Repo: "repo", Commit: testCommit}
	assert.Equal(t, "https://codeload.github.com/owner/repo/tar.gz/"+testCommit, ref.TarballURL())
	assert.Equal(t, "github:owner/repo#"+testCommit, ref.NpmVersion())
	assert.Equal(t, "github:owner/repo#v1", ref.NpmFrom("owner/repo#v1"))
	assert.Equal(t, "github:owner/repo", ref.NpmFrom("github:owner/repo"))

	inst := &Instance{Name: "repo", Version: "1.0.0", Git: ref}
	assert.Equal(t, "repo@"+ref.TarballURL(), inst.ID())
}
