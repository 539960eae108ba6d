// Package main provides the entry point for the Emigo Orchestrator: the
// long-lived process that owns the Session Store, supervises the Worker
// subprocess, and serves the editor frontend over a Unix domain socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/whirlun/emigo-go/internal/config"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/orchestrator"
	"github.com/whirlun/emigo-go/internal/provider"
	"github.com/whirlun/emigo-go/internal/rpc"
	"github.com/whirlun/emigo-go/internal/session"
)

var (
	socketPath = flag.String("socket", "", "Unix socket path (default: <state dir>/orchestrator.sock)")
	directory  = flag.String("directory", "", "Working directory")
	workerPath = flag.String("worker", "", "Path to the emigo-worker binary (default: look up emigo-worker next to this binary)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("emigo-orchestrator %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.Level = logging.DebugLevel
	}
	logging.Init(logCfg)

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get working directory: %v", err)
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	sockPath := *socketPath
	if sockPath == "" {
		sockPath = filepath.Join(paths.State, "orchestrator.sock")
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		log.Printf("Warning: failed to initialize some providers: %v", err)
	}

	store := session.NewStore()

	workerCmd, err := resolveWorkerCommand(*workerPath)
	if err != nil {
		log.Fatalf("Failed to locate emigo-worker: %v", err)
	}

	ln, err := rpc.Listen(sockPath)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", sockPath, err)
	}
	defer ln.Close()

	log.Printf("Starting Emigo Orchestrator v%s", Version)
	log.Printf("Working directory: %s", workDir)
	log.Printf("Listening on unix socket %s", sockPath)
	log.Printf("Waiting for a frontend connection...")

	conn, err := rpc.Accept(ln)
	if err != nil {
		log.Fatalf("Failed to accept frontend connection: %v", err)
	}
	defer conn.Close()

	log.Printf("Frontend connected")

	orch := orchestrator.New(appConfig, store, providers, conn, workerCmd)
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	conn.Serve(ctx, orch)

	log.Println("Frontend disconnected, shutting down")
	orch.Stop()
}

// resolveWorkerCommand returns the argv used to spawn the Worker
// subprocess: an explicit -worker flag, or emigo-worker found next to this
// binary's own executable.
func resolveWorkerCommand(explicit string) ([]string, error) {
	if explicit != "" {
		return []string{explicit}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	candidate := filepath.Join(filepath.Dir(self), "emigo-worker")
	if _, err := os.Stat(candidate); err != nil {
		return nil, fmt.Errorf("emigo-worker not found next to %s (pass -worker explicitly): %w", self, err)
	}
	return []string{candidate}, nil
}
