// Package version holds build-time version information for the guidechat
// binary. The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/guidechat-ai/guidechat/internal/version.Version=v0.3.0 \
//	                    -X github.com/guidechat-ai/guidechat/internal/version.Commit=abc1234 \
//	                    -X github.com/guidechat-ai/guidechat/internal/version.BuildDate=2026-01-01"
//
// Local builds without ldflags fall back to readable defaults.
package version

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date in RFC3339 format.
var BuildDate = "unknown"
