package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/robotomize/go-xunit-slack/internal/slice"
)

// ErrNoInput is returned by Resolve when neither a report path nor a glob pattern is given.
var ErrNoInput = errors.New("no xunit path or glob pattern given")

type FS interface {
	fs.FS
	RootDir() string
}

var _ FS = (*rootDirFS)(nil)

func New(entry string) FS {
	return &rootDirFS{entry: entry, FS: os.DirFS(entry)}
}

type rootDirFS struct {
	fs.FS
	entry string
}

func (r rootDirFS) RootDir() string {
	return r.entry
}

// Resolve returns the report files to read. A non-empty pattern is matched against
// the workspace root of fsys and wins over pth; otherwise pth is returned as is.
// Matches keep the enumeration order of the underlying file system.
func Resolve(fsys FS, pth, pattern string) ([]string, error) {
	if pattern == "" {
		if pth == "" {
			return nil, ErrNoInput
		}

		return []string{pth}, nil
	}

	matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("doublestar.Glob %q: %w", pattern, err)
	}

	return slice.Map(
		matches, func(match string) string {
			return filepath.Join(fsys.RootDir(), filepath.FromSlash(match))
		},
	), nil
}
