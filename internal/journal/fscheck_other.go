//go:build !darwin && !linux

package journal

// filesystemType reports an unknown local type where detection is unsupported.
func filesystemType(string) (string, error) {
	return "unknown", nil
}
