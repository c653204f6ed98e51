package buildinfo

import "strings"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/arcanumbot/core/buildinfo.Version=v1.0.0'
//	-X 'github.com/m3rciful/arcanumbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/arcanumbot/core/buildinfo.Date=2026-01-01T12:00:00Z'
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders "version (commit, date)" leaving out empty parts.
func String() string {
	var meta []string
	if c := strings.TrimSpace(Commit); c != "" {
		meta = append(meta, c)
	}
	if d := strings.TrimSpace(Date); d != "" {
		meta = append(meta, d)
	}
	if len(meta) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(meta, ", ") + ")"
}
