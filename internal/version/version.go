// Package version exposes build metadata stamped into the changepoll
// binary. Release builds set the variables with ldflags, for example:
//
//	go build -ldflags "\
//	  -X github.com/njbennett/changepoll/internal/version.Version=0.3.1 \
//	  -X github.com/njbennett/changepoll/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/njbennett/changepoll/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	  ./cmd/changepoll
//
// Unstamped builds report "dev". The values show up in the startup log,
// the readiness probe, and `changepoll version`.
package version

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash the binary was built from.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp, RFC 3339.
	BuildTime = "unknown"
)

// String renders the full build identity for logs and the CLI.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
