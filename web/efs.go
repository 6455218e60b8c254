package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed build/*
var distFS embed.FS

// GetFileSystem returns the planner UI files. A non-empty dir serves from disk
// instead of the embedded build.
func GetFileSystem(dir string) (fs.FS, error) {
	// 1. Dev mode: Serve from disk
	if dir != "" {
		return os.DirFS(dir), nil
	}

	// 2. Production mode: Serve embedded files
	return fs.Sub(distFS, "build")
}
