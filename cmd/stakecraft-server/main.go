// Stakecraft-server is the companion service that registers sessions
// and resolves end-of-day effects from comparison results.
// Usage: stakecraft-server [--version] [--config <file>] [--addr <addr>] [--db <path>]
package main

import (
	"fmt"
	"os"

	"github.com/vreyes/stakecraft/config"
	"github.com/vreyes/stakecraft/server"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configFile string
		addr       string
		dbPath     string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("stakecraft-server %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--config requires a file path\n")
				os.Exit(1)
			}
			i++
			configFile = args[i]
		case "--addr":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--addr requires an address\n")
				os.Exit(1)
			}
			i++
			addr = args[i]
		case "--db":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--db requires a file path\n")
				os.Exit(1)
			}
			i++
			dbPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", args[i])
			os.Exit(1)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath != "" {
		cfg.Server.DatabasePath = dbPath
	}

	store, err := server.Open(cfg.Server.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %s: %v\n", cfg.Server.DatabasePath, err)
		os.Exit(1)
	}
	defer store.Close()

	srv := server.New(store)
	fmt.Printf("stakecraft-server listening on %s (db %s)\n", cfg.Server.Addr, cfg.Server.DatabasePath)
	if err := srv.Router().Run(cfg.Server.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
