// Package buildinfo exposes version metadata injected at link time.
package buildinfo

var (
	// Version is the semantic version of the running binary.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)
