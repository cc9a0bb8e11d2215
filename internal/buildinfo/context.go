// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import "fmt"

// Set by the linker, e.g. -ldflags "-X github.com/tphakala/reckless-court/internal/buildinfo.version=1.2.0"
var (
	version   = ""
	buildDate = ""
)

// Context contains build-time metadata that is not user-configurable
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// Current returns the metadata linked into the binary
func Current() *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version, or fallback when none was linked in
func (c *Context) GetVersion(fallback string) string {
	if c == nil || c.Version == "" {
		if fallback == "" {
			return "unknown"
		}
		return fallback
	}
	return c.Version
}

// GetBuildDate returns the build date or "unknown"
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}

// String returns a one-line version banner
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.GetVersion(""), c.GetBuildDate())
}
