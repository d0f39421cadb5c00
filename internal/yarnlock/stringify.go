package yarnlock

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/anthr76/lockbridge/internal/ordered"
)

// Header is the comment yarn writes at the top of every v1 lockfile.
const Header = "# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.\n# yarn lockfile v1\n"

var (
	needsQuoteRe   = regexp.MustCompile(`[:\s\\",\[\]]`)
	startsLetterRe = regexp.MustCompile(`^[a-zA-Z]`)
)

// Stringify renders the lockfile in entry order. Keys inside an entry and
// dependency maps are sorted the way yarn sorts them.
func (lf *Lockfile) Stringify() []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n\n")

	for i, e := range lf.Entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		writeEntry(&buf, e)
	}
	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, e *Entry) {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	for i, k := range keys {
		keys[i] = maybeQuote(k)
	}
	buf.WriteString(strings.Join(keys, ", "))
	buf.WriteString(":\n")

	writeField(buf, "version", e.Version)
	writeField(buf, "resolved", e.Resolved)
	writeField(buf, "integrity", e.Integrity)
	writeMap(buf, "dependencies", e.Dependencies)
	writeMap(buf, "optionalDependencies", e.OptionalDependencies)
}

func writeField(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	buf.WriteString("  " + name + " " + maybeQuote(value) + "\n")
}

func writeMap(buf *bytes.Buffer, name string, m *ordered.Map[string]) {
	if m.Len() == 0 {
		return
	}
	names := append([]string(nil), m.Keys()...)
	sort.Strings(names)

	buf.WriteString("  " + name + ":\n")
	for _, n := range names {
		v, _ := m.Get(n)
		buf.WriteString("    " + maybeQuote(n) + " " + maybeQuote(v) + "\n")
	}
}

// maybeQuote applies yarn's rule for when a token must be written as a
// JSON string.
func maybeQuote(s string) string {
	if strings.HasPrefix(s, "true") || strings.HasPrefix(s, "false") ||
		needsQuoteRe.MatchString(s) || !startsLetterRe.MatchString(s) {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
