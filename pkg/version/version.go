// Package version holds the smolder release version, overridden at build
// time via -ldflags "-X .../pkg/version.Version=v1.2.3".
package version

// Version is the current smolder version.
var Version = "dev"
