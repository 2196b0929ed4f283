package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Locator schemes. A locator without a scheme is read from the bundled
// resources.
const (
	SchemeBundled = "classpath:"
	SchemeFile    = "file:"
)

// DefaultLocator is used when no locator is configured by the caller.
const DefaultLocator = SchemeBundled + "config.yml"

// splitLocator returns the scheme and path of a locator.
func splitLocator(locator string) (scheme, path string) {
	switch {
	case strings.HasPrefix(locator, SchemeBundled):
		return SchemeBundled, strings.TrimPrefix(locator, SchemeBundled)
	case strings.HasPrefix(locator, SchemeFile):
		return SchemeFile, strings.TrimPrefix(locator, SchemeFile)
	default:
		return SchemeBundled, locator
	}
}

// open resolves a locator to a readable stream. The caller closes it.
func (l *Loader) open(locator string) (io.ReadCloser, error) {
	scheme, path := splitLocator(locator)
	if path == "" {
		return nil, errors.New("empty resource path")
	}

	if scheme == SchemeFile {
		return openFile(path)
	}

	if l.bundled == nil {
		return nil, errors.New("no bundled resources available")
	}
	// Bundled paths are always relative to the resource root.
	name := strings.TrimLeft(path, "/")
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid resource path %q", path)
	}
	f, err := l.bundled.Open(name)
	if err != nil {
		return nil, err
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", name)
	}
	return f, nil
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return f, nil
}
