// Package version carries the build metadata the release pipeline
// stamps in through -ldflags.
package version

//nolint:revive // Overwritten at link time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the stamped metadata in one token, e.g.
// "1.4.0 (f3a9c21, 2026-08-25)".
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
