package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// remoteFilesystems lists filesystem types where SQLite locking is unreliable.
var remoteFilesystems = []string{"afpfs", "cifs", "nfs", "smbfs", "smb2", "webdav"}

type fsDetector func(path string) (string, error)

// requireLocalFilesystem fails when path, or its nearest existing ancestor,
// lives on a network filesystem.
func requireLocalFilesystem(path string, detect fsDetector) error {
	existing, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve journal path %q: %w", path, err)
	}

	kind, err := detect(existing)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	}
	if isRemote(kind) {
		return fmt.Errorf("journal %q is on network filesystem %q; SQLite needs a local disk, pass a local path with --journal", path, kind)
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for dir := abs; ; dir = filepath.Dir(dir) {
		_, err := os.Stat(dir)
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		case filepath.Dir(dir) == dir:
			return "", fmt.Errorf("no existing parent for %q", abs)
		}
	}
}

func isRemote(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, remote := range remoteFilesystems {
		if kind == remote {
			return true
		}
	}
	return false
}
