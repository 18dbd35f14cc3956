package integrity

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// resolvedPath returns p made absolute with symlinks resolved. The byte spelling of
// the name is kept because that is what the filesystem looks up.
func resolvedPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs
}

// visitKey is the visited-set key for a resolved path. It is Unicode-normalized so
// one file reached through composed and decomposed spellings is visited once.
func visitKey(resolved string) string {
	return norm.NFC.String(resolved)
}

// statTarget stats path, falling back to its composed and decomposed spellings when
// the reference and the filesystem disagree on normalization. It returns the spelling
// that exists.
func statTarget(path string) (string, fs.FileInfo, error) {
	fi, err := os.Stat(path)
	if err == nil {
		return path, fi, nil
	}
	for _, alt := range []string{norm.NFC.String(path), norm.NFD.String(path)} {
		if alt == path {
			continue
		}
		if afi, aerr := os.Stat(alt); aerr == nil {
			return resolvedPath(alt), afi, nil
		}
	}
	return path, nil, err
}
