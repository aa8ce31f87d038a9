package api

// Build information, set with -ldflags "-X github.com/MJE43/fairpace/internal/api.EngineVersion=...".
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)
