package api

// Build metadata, injected with
// -ldflags "-X github.com/ensigniasec/cleaner-client/internal/api.BuildVersion=...".
// The CLI prints it and the User-Agent carries BuildVersion.
//
//nolint:gochecknoglobals // these are set at build time
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)
