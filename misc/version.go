// Package misc has build time information.
package misc

// Set with -ldflags "-X fb2html/misc.version=... -X fb2html/misc.githash=...".
var (
	version = "dev"
	githash = "unknown"
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns commit program was built from.
func GetGitHash() string {
	return githash
}
