// Command printagent is the on-premise print agent binary: it loads
// configuration, wires the Core Orchestrator, and runs either in the
// foreground or under a platform service manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kardianos/service"

	"repairmind/printagent/internal/config"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path (default: platform-specific)")
	generateConfig := flag.Bool("generate-config", false, "Write a default configuration file and exit")
	serviceCmd := flag.String("service", "", "Service control: install, uninstall, start, stop, status, run")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	quiet := flag.Bool("quiet", false, "Suppress informational output (errors/warnings still shown)")
	flag.BoolVar(quiet, "q", false, "Shorthand for --quiet")
	flag.Parse()

	setQuietMode(*quiet)

	if *showVersion {
		fmt.Printf("printagent %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	}

	resolvedConfigPath := *configPath
	if resolvedConfigPath == "" {
		resolvedConfigPath = config.DefaultConfigPath()
	}

	if *generateConfig {
		if err := config.WriteDefault(resolvedConfigPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at %s\n", resolvedConfigPath)
		return
	}

	if *serviceCmd != "" {
		handleServiceCommand(*serviceCmd, resolvedConfigPath)
		return
	}

	if !service.Interactive() {
		runAsService(resolvedConfigPath)
		return
	}

	runInteractive(context.Background(), resolvedConfigPath)
}

// ensureDataDir returns the data directory for queue/config-store
// persistence, creating it if necessary.
func ensureDataDir(cfg *config.Config) (string, error) {
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", err
		}
		return cfg.DataDir, nil
	}
	return config.DefaultDataDir()
}

func queuePath(dataDir string) string {
	return filepath.Join(dataDir, "job-queue.json")
}

func configStorePath(dataDir string) string {
	return filepath.Join(dataDir, "config.db")
}
