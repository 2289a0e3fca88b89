package logs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Family returns the rotation family of prefix: every file in the prefix's
// directory whose name contains the prefix's base name (its file name without
// the final extension). Paths are absolute and sorted lexicographically.
// A missing directory yields an empty family.
func (a *Accessor) Family(prefix string) ([]string, error) {
	prefix = a.Abs(prefix)
	dir := filepath.Dir(prefix)
	base := familyName(prefix)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	members := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && strings.Contains(e.Name(), base)
	})
	paths := lo.Map(members, func(e os.DirEntry, _ int) string {
		return filepath.Join(dir, e.Name())
	})
	sort.Strings(paths)
	return paths, nil
}

// Newest returns the lexicographically last member of the rotation family,
// or "" when the family is empty. File modification times are not consulted.
func (a *Accessor) Newest(prefix string) (string, error) {
	paths, err := a.Family(prefix)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	return paths[len(paths)-1], nil
}

// InFamily reports whether the file name belongs to prefix's rotation family.
func InFamily(prefix, name string) bool {
	return strings.Contains(filepath.Base(name), familyName(prefix))
}

// familyName strips the final extension from the prefix's file name.
// Dot files such as ".env" keep their full name.
func familyName(prefix string) string {
	base := filepath.Base(prefix)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}
