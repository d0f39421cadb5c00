// Package yarnlock reads and writes yarn v1 lockfiles.
package yarnlock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthr76/lockbridge/internal/ordered"
)

// DefaultLockfile is the default lockfile name.
const DefaultLockfile = "yarn.lock"

// SyntaxError reports a yarn.lock line that cannot be parsed.
type SyntaxError struct {
	Line   int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("parsing %s: line %d: %s", DefaultLockfile, e.Line, e.Reason)
}

// Node is a value in the lockfile grammar: either a scalar or an object.
type Node struct {
	Value    string
	Children *ordered.Map[*Node]
}

// IsObject reports whether the node holds nested keys.
func (n *Node) IsObject() bool {
	return n.Children != nil
}

// Load reads a lockfile from the given path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}
	return Parse(data)
}

// LoadDir reads yarn.lock from dir.
func LoadDir(dir string) (*Lockfile, error) {
	return Load(filepath.Join(dir, DefaultLockfile))
}

// Parse decodes yarn.lock content into entries.
func Parse(data []byte) (*Lockfile, error) {
	tree, err := ParseTree(data)
	if err != nil {
		return nil, err
	}
	return decode(tree)
}

type frame struct {
	children *ordered.Map[*Node]
}

// ParseTree tokenizes yarn.lock content into its generic object tree.
// Top-level keys are kept as written, so "a@^1, a@^2" is one key.
// LF and CRLF line endings parse the same.
func ParseTree(data []byte) (*ordered.Map[*Node], error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	root := ordered.NewMap[*Node]()
	stack := []frame{{children: root}}

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimLeft(raw, " ")
		if strings.TrimSpace(trimmed) == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "\t") {
			return nil, &SyntaxError{Line: lineNo, Reason: "tabs are not allowed for indentation"}
		}

		indent := len(raw) - len(trimmed)
		if indent%2 != 0 {
			return nil, &SyntaxError{Line: lineNo, Reason: "indentation must be a multiple of two spaces"}
		}
		depth := indent / 2
		if depth > len(stack)-1 {
			return nil, &SyntaxError{Line: lineNo, Reason: "unexpected indentation"}
		}
		stack = stack[:depth+1]

		keys, rest, err := scanKeys(strings.TrimRight(trimmed, " "))
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
		}
		key := strings.Join(keys, ", ")
		parent := stack[depth].children

		if rest == "" {
			// "key:" opens an object
			node := &Node{Children: ordered.NewMap[*Node]()}
			parent.Set(key, node)
			stack = append(stack, frame{children: node.Children})
			continue
		}

		value, err := scanValue(rest)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
		}
		parent.Set(key, &Node{Value: value})
	}

	return root, nil
}

// scanKeys reads one or more comma separated keys. rest is empty when the
// line ends with ':' and holds the value text otherwise.
func scanKeys(line string) (keys []string, rest string, err error) {
	for {
		var key string
		if strings.HasPrefix(line, `"`) {
			key, line, err = scanQuoted(line)
			if err != nil {
				return nil, "", err
			}
		} else {
			end := strings.IndexAny(line, " :,")
			if end == -1 {
				return nil, "", fmt.Errorf("missing value for key %q", line)
			}
			key, line = line[:end], line[end:]
		}
		if key == "" {
			return nil, "", fmt.Errorf("empty key")
		}
		keys = append(keys, key)

		switch {
		case strings.HasPrefix(line, ","):
			line = strings.TrimLeft(line[1:], " ")
		case line == ":":
			return keys, "", nil
		case strings.HasPrefix(line, ": "):
			return keys, strings.TrimLeft(line[1:], " "), nil
		case strings.HasPrefix(line, " "):
			if len(keys) > 1 {
				return nil, "", fmt.Errorf("a key list must open an object")
			}
			return keys, strings.TrimLeft(line, " "), nil
		default:
			return nil, "", fmt.Errorf("unexpected %q after key", line)
		}
	}
}

func scanValue(text string) (string, error) {
	if !strings.HasPrefix(text, `"`) {
		return text, nil
	}
	value, rest, err := scanQuoted(text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rest) != "" {
		return "", fmt.Errorf("unexpected %q after value", rest)
	}
	return value, nil
}

// scanQuoted reads a JSON style double quoted string from the start of s.
func scanQuoted(s string) (value, rest string, err error) {
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			value, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", "", fmt.Errorf("invalid quoted string %s", s[:i+1])
			}
			return value, s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated string")
}
