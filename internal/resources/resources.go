// Package resources bundles default documents into the binary. Locators
// with the classpath: scheme (or no scheme) are resolved against FS.
package resources

import "embed"

// FS holds the bundled resources.
//
//go:embed config.yml
var FS embed.FS
