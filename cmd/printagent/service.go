package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface, the same split Start/run/Stop
// shape as the teacher's own service wrapper: Start returns
// immediately and hands off to a background goroutine, Stop cancels
// its context and waits (bounded) for a graceful exit.
type program struct {
	configPath string

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	svcLogger service.Logger
}

func (p *program) Start(s service.Service) error {
	p.svcLogger, _ = s.Logger(nil)
	if p.svcLogger != nil {
		p.svcLogger.Info("print agent service starting")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.done)
	runInteractive(p.ctx, p.configPath)
}

func (p *program) Stop(s service.Service) error {
	if p.svcLogger != nil {
		p.svcLogger.Info("print agent service stop requested")
	}
	if p.cancel != nil {
		p.cancel()
	}

	select {
	case <-p.done:
		if p.svcLogger != nil {
			p.svcLogger.Info("print agent service stopped gracefully")
		}
	case <-time.After(30 * time.Second):
		if p.svcLogger != nil {
			p.svcLogger.Warning("print agent service stopped with timeout")
		}
	}
	return nil
}

// getServiceConfig returns the platform-appropriate service
// registration, mirroring the teacher's own restart/kill-signal
// options for each OS's service manager.
func getServiceConfig() *service.Config {
	var workingDir string
	switch runtime.GOOS {
	case "windows":
		workingDir = filepath.Join(os.Getenv("ProgramData"), "RepairMindPrint")
	case "darwin":
		workingDir = "/Library/Application Support/RepairMindPrint"
	default:
		workingDir = "/var/lib/repairmind-print"
	}

	return &service.Config{
		Name:             "RepairMindPrintAgent",
		DisplayName:      "RepairMind Print Agent",
		Description:      "Receives print jobs from the backend and drives local printers.",
		WorkingDirectory: workingDir,
		Arguments:        []string{"--service", "run"},
		Option: service.KeyValue{
			"StartType":              "automatic",
			"DelayedAutoStart":       true,
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
			"OnFailureResetPeriod":   30,

			"Restart":           "on-failure",
			"RestartSec":        5,
			"SuccessExitStatus": "0 SIGTERM",
			"KillMode":          "mixed",
			"KillSignal":        "SIGTERM",

			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

func handleServiceCommand(cmd, configPath string) {
	svcConfig := getServiceConfig()
	prg := &program{configPath: configPath}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		showBanner(Version, GitCommit, BuildTime)
		if err := s.Install(); err != nil {
			showError(fmt.Sprintf("failed to install service: %v", err))
			os.Exit(1)
		}
		showSuccess("service installed")
		showInfo("use '--service start' to start the service")

	case "uninstall":
		if err := s.Uninstall(); err != nil {
			showError(fmt.Sprintf("failed to uninstall service: %v", err))
			os.Exit(1)
		}
		showSuccess("service uninstalled")

	case "start":
		if err := s.Start(); err != nil {
			showError(fmt.Sprintf("failed to start service: %v", err))
			os.Exit(1)
		}
		showSuccess("service started")

	case "stop":
		if err := s.Stop(); err != nil {
			showError(fmt.Sprintf("failed to stop service: %v", err))
			os.Exit(1)
		}
		showSuccess("service stopped")

	case "status":
		status, statusErr := s.Status()
		var text string
		switch status {
		case service.StatusRunning:
			text = "RUNNING"
		case service.StatusStopped:
			text = "STOPPED"
		default:
			text = "NOT INSTALLED"
		}
		if statusErr != nil {
			fmt.Printf("service status: %s (%v)\n", text, statusErr)
		} else {
			fmt.Printf("service status: %s\n", text)
		}

	case "run":
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "service run failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown service command: %s\n", cmd)
		fmt.Println("valid commands: install, uninstall, start, stop, status, run")
		os.Exit(1)
	}
}

// runAsService starts the agent under service manager control, used
// when the process was launched non-interactively (e.g. by systemd).
func runAsService(configPath string) {
	svcConfig := getServiceConfig()
	prg := &program{configPath: configPath}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		os.Exit(1)
	}
}
