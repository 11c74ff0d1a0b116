package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/inferloop/mcmc/internal/server"
)

// Overridden at build time with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// applyBuildInfo copies the build metadata served by /version
func applyBuildInfo(cfg *server.Config) {
	cfg.Version = Version
	cfg.GitCommit = GitCommit
	cfg.BuildDate = BuildDate
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mcmc-server %s\n", Version)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
