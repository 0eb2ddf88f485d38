// Package buildinfo holds version metadata stamped in at link time, for example:
//
//	go build -ldflags "-X github.com/m3rciful/sheetsbot/core/buildinfo.Version=v1.0.0 \
//	  -X github.com/m3rciful/sheetsbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/sheetsbot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

// Unstamped builds report "dev" from "local" with no date.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)
