package yarnlock

import (
	"fmt"
	"strings"

	"github.com/anthr76/lockbridge/internal/ordered"
)

// Lockfile is a parsed yarn.lock in file order.
type Lockfile struct {
	Entries []*Entry
}

// Entry is one resolved package and every "name@range" key pointing at it.
type Entry struct {
	Keys                 []string
	Version              string
	Resolved             string
	Integrity            string
	Dependencies         *ordered.Map[string]
	OptionalDependencies *ordered.Map[string]
}

// SplitKey separates "name@range", keeping a leading scope "@".
func SplitKey(key string) (name, rng string) {
	if len(key) == 0 {
		return "", ""
	}
	i := strings.Index(key[1:], "@")
	if i == -1 {
		return key, ""
	}
	return key[:i+1], key[i+2:]
}

// Name returns the package name shared by the entry's keys.
func (e *Entry) Name() string {
	if len(e.Keys) == 0 {
		return ""
	}
	name, _ := SplitKey(e.Keys[0])
	return name
}

func decode(tree *ordered.Map[*Node]) (*Lockfile, error) {
	lf := &Lockfile{}
	var err error
	tree.Each(func(key string, node *Node) {
		if err != nil {
			return
		}
		if !node.IsObject() {
			err = fmt.Errorf("parsing %s: top-level key %q is not an entry", DefaultLockfile, key)
			return
		}
		entry := &Entry{Keys: strings.Split(key, ", ")}
		node.Children.Each(func(field string, value *Node) {
			if err != nil {
				return
			}
			switch field {
			case "version":
				entry.Version = value.Value
			case "resolved":
				entry.Resolved = value.Value
			case "integrity":
				entry.Integrity = value.Value
			case "dependencies":
				entry.Dependencies, err = scalarMap(key, field, value)
			case "optionalDependencies":
				entry.OptionalDependencies, err = scalarMap(key, field, value)
			}
		})
		lf.Entries = append(lf.Entries, entry)
	})
	if err != nil {
		return nil, err
	}
	return lf, nil
}

func scalarMap(key, field string, node *Node) (*ordered.Map[string], error) {
	if !node.IsObject() {
		return nil, fmt.Errorf("parsing %s: %s: %s must be an object", DefaultLockfile, key, field)
	}
	out := ordered.NewMap[string]()
	var err error
	node.Children.Each(func(name string, v *Node) {
		if v.IsObject() {
			err = fmt.Errorf("parsing %s: %s: %s.%s must be a string", DefaultLockfile, key, field, name)
			return
		}
		out.Set(name, v.Value)
	})
	return out, err
}
