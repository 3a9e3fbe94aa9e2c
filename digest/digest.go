// Package digest computes the canonical per-file fingerprint used for
// whole-file content-addressed deduplication.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	apperror "github.com/drinkcat/simple-serac/error"
)

// File returns the lowercase hex SHA-256 digest of path.
//
// For a regular file, it hashes the file's byte stream. For a symlink, it
// hashes the UTF-8 bytes of the readlink result without following the link:
// the link target is backup content in its own right, not an instruction to
// chase. Anything else returns UnsupportedFileKind.
func File(path string) (string, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return "", err
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256([]byte(target))
		return hex.EncodeToString(sum[:]), nil

	case fi.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil

	default:
		return "", &apperror.UnsupportedFileKind{Path: path, Kind: fi.Mode().Type().String()}
	}
}
