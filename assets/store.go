// Package assets manages per-round drawing files. Uploading is handled
// elsewhere; this package names the files and removes them when a round or
// room ends.
package assets

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/wfunc/drawguess/logger"
	"go.uber.org/multierr"
)

const publicPrefix = "/images/"

type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// NewOSStore serves dir on the local filesystem.
func NewOSStore(dir string) *Store {
	return NewStore(afero.NewOsFs(), dir)
}

// FileName reduces a drawing reference (URL or path) to its base name.
func FileName(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	name := path.Base(strings.ReplaceAll(ref, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// PublicURL is the path clients fetch a drawing from.
func (s *Store) PublicURL(name string) string {
	return publicPrefix + name
}

// DeleteAssetsFor removes every file named "<roomID>_*". Failures on single
// files are collected and do not stop the sweep.
func (s *Store) DeleteAssetsFor(roomID string) error {
	matches, err := afero.Glob(s.fs, filepath.Join(s.dir, roomID+"_*"))
	if err != nil {
		return fmt.Errorf("list assets for room %s: %w", roomID, err)
	}

	var errs error
	for _, file := range matches {
		if err := s.fs.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Log.Infof("Removed drawing file: %s", file)
	}
	return errs
}
