package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"repairmind/printagent/internal/config"
	"repairmind/printagent/internal/logger"
	"repairmind/printagent/internal/orchestrator"
	"repairmind/printagent/internal/storage"
)

const statusLineInterval = 60 * time.Second

// runInteractive loads configuration, wires the Core Orchestrator, and
// blocks until ctx is cancelled or a termination signal arrives. It is
// used both for the foreground `run` path and, with a
// context.CancelFunc driven by the service wrapper's Stop, under a
// platform service manager.
func runInteractive(ctx context.Context, configPath string) {
	showBanner(Version, GitCommit, BuildTime)

	cfg, err := loadConfig(configPath)
	if err != nil {
		showError(fmt.Sprintf("failed to load configuration: %v", err))
		os.Exit(1)
	}

	dataDir, err := ensureDataDir(cfg)
	if err != nil {
		showError(fmt.Sprintf("failed to prepare data directory: %v", err))
		os.Exit(1)
	}

	log := logger.New(logger.LevelFromString(cfg.LogLevel), dataDir, 1000)
	log.SetConsoleOutput(!quietMode)
	defer log.Close()

	store, err := storage.NewConfigStore(configStorePath(dataDir))
	if err != nil {
		showError(fmt.Sprintf("failed to open configuration store: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	mergeFromStore(cfg, store)
	if err := ensureClientID(cfg, store); err != nil {
		showError(fmt.Sprintf("failed to provision client id: %v", err))
		os.Exit(1)
	}

	o, err := orchestrator.New(orchestrator.Options{
		Config:    cfg,
		Logger:    log,
		QueuePath: queuePath(dataDir),
	})
	if err != nil {
		showError(fmt.Sprintf("failed to build orchestrator: %v", err))
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := o.Start(runCtx); err != nil {
		showError(fmt.Sprintf("failed to start orchestrator: %v", err))
		os.Exit(1)
	}

	printPrinterList(o)
	showInfo(fmt.Sprintf("connecting to %s", cfg.WebsocketURL()))

	ticker := time.NewTicker(statusLineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printStatusLine(o)
		case <-runCtx.Done():
			o.Stop()
			printFinalStatusLine(o)
			return
		}
	}
}

// loadConfig resolves the TOML file + environment variable layers via
// internal/config; a missing file is not fatal, per its own contract.
func loadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}

// mergeFromStore fills in provisioning fields (tenant/client
// credentials, heartbeat interval, environment) from the persisted
// configuration store wherever the TOML file and environment variables
// left them at their zero value; the heartbeat interval is also taken
// from the store while it still holds the built-in default. The
// auto-register flag is not read from the store. This realizes
// §4.7 step 1, "build config from persisted store": the store holds
// whatever a pairing/provisioning flow wrote, while the file and env
// layers (already applied by internal/config.Load) keep priority for
// local overrides and container deployments.
func mergeFromStore(cfg *config.Config, store storage.ConfigStore) {
	if cfg.TenantID == "" {
		var v string
		if found, _ := store.Get(storage.KeyTenantID, &v); found {
			cfg.TenantID = v
		}
	}
	if cfg.ClientID == "" {
		var v string
		if found, _ := store.Get(storage.KeyClientID, &v); found {
			cfg.ClientID = v
		}
	}
	if cfg.APIKey == "" {
		var v string
		if found, _ := store.Get(storage.KeyAPIKey, &v); found {
			cfg.APIKey = v
		}
	}
	if cfg.Token == "" {
		var v string
		if found, _ := store.Get(storage.KeyToken, &v); found {
			cfg.Token = v
		}
	}
	if cfg.HeartbeatSeconds == 0 || cfg.HeartbeatSeconds == config.DefaultConfig().HeartbeatSeconds {
		var v int
		if found, _ := store.Get(storage.KeyHeartbeatSeconds, &v); found {
			cfg.HeartbeatSeconds = v
		}
	}
	if cfg.Environment == "" {
		var v string
		if found, _ := store.Get(storage.KeyEnvironment, &v); found {
			cfg.Environment = config.Environment(v)
		}
	}
}

// ensureClientID assigns this shop a stable client identity on first
// run: if neither the config file, the environment, nor the store
// already carry one, a fresh UUID is minted and written to the store
// so every subsequent start (and every register_printer/job_status
// frame) uses the same clientId the backend has already seen.
func ensureClientID(cfg *config.Config, store storage.ConfigStore) error {
	if cfg.ClientID != "" {
		return nil
	}
	cfg.ClientID = uuid.NewString()
	return store.Set(storage.KeyClientID, cfg.ClientID)
}

func printPrinterList(o *orchestrator.Orchestrator) {
	printers := o.Status().Printers
	if len(printers) == 0 {
		showInfo("no printers enumerated at startup")
		return
	}
	showInfo(fmt.Sprintf("enumerated %d printer(s):", len(printers)))
	for _, p := range printers {
		fmt.Printf("  - %s (%s, %s)\n", p.DisplayName, p.Type, p.Transport)
	}
}

func printStatusLine(o *orchestrator.Orchestrator) {
	s := o.Status()
	fmt.Printf("%s[status]%s uptime=%s state=%s queued=%d processing=%d completed=%d failed=%d success_rate=%.0f%% reconnections=%d\n",
		colorDim, colorReset,
		s.Uptime.Round(time.Second), s.SessionState,
		s.QueueStats.Queued, s.QueueStats.Processing,
		s.JobsCompleted, s.JobsFailed, s.SuccessRate*100, s.Reconnections)
}

func printFinalStatusLine(o *orchestrator.Orchestrator) {
	showInfo("shutting down, queue flushed to disk")
	printStatusLine(o)
}
