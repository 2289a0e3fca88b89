// Package logs locates, clears and tails log files written by an external
// process. It never writes log content itself and does not rotate files.
package logs

import (
	"os"
	"path/filepath"
)

// Accessor resolves log names against a base directory.
type Accessor struct {
	dir string
}

// New creates an accessor rooted at dir. Relative names passed to the
// accessor's methods are joined with dir.
func New(dir string) *Accessor {
	return &Accessor{dir: dir}
}

// DefaultDir returns <user config dir>/<product>, or <temp dir>/<product>
// when the platform has no user config directory.
func DefaultDir(product string) string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, product)
}

// Dir returns the accessor's base directory.
func (a *Accessor) Dir() string {
	return a.dir
}

// ResolvePath returns the absolute location of the named log file and makes
// sure its parent directory exists. Absolute names are returned exactly as
// given. Relative names are joined with the accessor directory, which is
// itself made absolute against the working directory when needed.
// Filesystem errors are returned unchanged.
func (a *Accessor) ResolvePath(name string) (string, error) {
	path := name
	if !filepath.IsAbs(name) {
		p, err := filepath.Abs(filepath.Join(a.dir, name))
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Clear truncates the log file at path to zero bytes. A missing file is an
// error.
func (a *Accessor) Clear(path string) error {
	return os.Truncate(a.Abs(path), 0)
}

// Abs joins relative names with the accessor directory. Absolute names are
// cleaned so they compare equal to paths listed from the directory.
func (a *Accessor) Abs(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(a.dir, name)
}
