// Stakecraft is a dialogue-driven project management simulation with
// behavioral telemetry.
// Usage: stakecraft [--version] [--plain] [--script <file>] [--sync] [--config <file>] <content_directory>
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vreyes/stakecraft/cli"
	"github.com/vreyes/stakecraft/config"
	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/export"
	"github.com/vreyes/stakecraft/loader"
	"github.com/vreyes/stakecraft/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		plain      bool
		syncFlag   bool
		contentDir string
		scriptFile string
		configFile string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("stakecraft %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--sync":
			syncFlag = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		case "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--config requires a file path\n")
				os.Exit(1)
			}
			i++
			configFile = args[i]
		default:
			if contentDir == "" {
				contentDir = args[i]
			}
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if contentDir == "" {
		contentDir = cfg.Content.Dir
	}
	if plain {
		cfg.UI.Plain = true
	}
	if syncFlag {
		cfg.Sync.Enabled = true
	}

	// Load and compile Lua simulation content.
	pack, err := loader.Load(contentDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading content: %v\n", err)
		os.Exit(1)
	}

	var opts []session.Option
	if cfg.Sync.Enabled {
		client := export.NewClient(cfg.Sync.BaseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		id, err := client.CreateSession(ctx, pack.PlayerName)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not register session with %s: %v\n", cfg.Sync.BaseURL, err)
			fmt.Fprintf(os.Stderr, "Continuing without day sync.\n")
		} else {
			opts = append(opts, session.WithSyncer(client), session.WithID(id))
		}
	}

	s := session.New(pack, opts...)

	// Script mode: open file, force plain, echo input.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(s, pack)
		c.In = f
		c.EchoInput = true
		c.Run()
		return
	}

	// Use plain CLI if configured or stdout is not a terminal.
	if cfg.UI.Plain || !isTerminal() {
		cli.New(s, pack).Run()
		return
	}

	if err := tui.Run(s, pack); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
