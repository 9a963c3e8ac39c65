package main

import (
	"fmt"
	"os"

	"github.com/malbeclabs/cragtree/internal/seed"
	"github.com/malbeclabs/cragtree/pkg/config"
	"github.com/malbeclabs/cragtree/pkg/loader"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return seed.RunCLI("seed", config.Defaults{
		Schema:   loader.SchemaFull,
		Database: "openbeta",
		Rollup:   loader.Full().Rollup,
	}, seed.BuildInfo{Version: version, Commit: commit, Date: date}, os.Args[1:], os.Stdout)
}
