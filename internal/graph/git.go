package graph

import (
	"regexp"
	"strings"
)

// GitRef points at a GitHub repository. Commit is the resolved SHA and is
// the resolution identity; Committish is whatever the manifest asked for.
type GitRef struct {
	Owner      string
	Repo       string
	Committish string
	Commit     string
}

var (
	shorthandRe = regexp.MustCompile(`^(?:github:)?([\w.-]+)/([\w.-]+?)(?:\.git)?(?:#(.+))?$`)
	gitURLRe    = regexp.MustCompile(`^(?:git\+)?(?:https?|ssh|git)://(?:[^@/]+@)?github\.com[/:]([\w.-]+)/([\w.-]+?)(?:\.git)?(?:#(.+))?$`)
	codeloadRe  = regexp.MustCompile(`^https://codeload\.github\.com/([\w.-]+)/([\w.-]+)/tar\.gz/([0-9a-fA-F]+)$`)
	commitRe    = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// ParseGitRange recognizes the GitHub forms a manifest or lockfile uses
// in place of a semver range.
func ParseGitRange(r string) (*GitRef, bool) {
	if m := codeloadRe.FindStringSubmatch(r); m != nil {
		return &GitRef{Owner: m[1], Repo: m[2], Commit: strings.ToLower(m[3])}, true
	}
	m := gitURLRe.FindStringSubmatch(r)
	if m == nil {
		// "owner/repo" needs the slash; plain semver ranges never have one
		if !strings.Contains(r, "/") || strings.HasPrefix(r, ".") || strings.ContainsAny(r, " <>=^~|") {
			return nil, false
		}
		if m = shorthandRe.FindStringSubmatch(r); m == nil {
			return nil, false
		}
	}
	ref := &GitRef{Owner: m[1], Repo: m[2], Committish: m[3]}
	if commitRe.MatchString(ref.Committish) {
		ref.Commit = ref.Committish
	}
	return ref, true
}

// TarballURL is the codeload archive for the resolved commit.
func (r *GitRef) TarballURL() string {
	return "https://codeload.github.com/" + r.Owner + "/" + r.Repo + "/tar.gz/" + r.Commit
}

// NpmVersion is how package-lock.json spells a resolved GitHub dependency.
func (r *GitRef) NpmVersion() string {
	return "github:" + r.Owner + "/" + r.Repo + "#" + r.Commit
}

// NpmFrom is the "from" field: the requested reference with the host prefix.
func (r *GitRef) NpmFrom(requested string) string {
	if strings.HasPrefix(requested, "github:") || strings.Contains(requested, "://") {
		return requested
	}
	return "github:" + requested
}
