package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitTime string // last git commit time (last code edit)
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Info returns the build fields for status endpoints and CLI output
func Info() map[string]interface{} {
	return map[string]interface{}{
		"version":     Version,
		"build_time":  BuildTime,
		"commit_time": CommitTime,
		"commit_hash": CommitHash,
		"start_time":  StartTime,
	}
}
