// Package main provides the entry point for the Emigo Worker: the
// isolated subprocess that owns one agentic LLM turn loop at a time,
// speaking the orchestrator's line-delimited JSON protocol over its own
// stdin/stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/whirlun/emigo-go/internal/config"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/permission"
	"github.com/whirlun/emigo-go/internal/provider"
	"github.com/whirlun/emigo-go/internal/tool"
	"github.com/whirlun/emigo-go/internal/worker"
)

var (
	directory = flag.String("directory", "", "Working directory used to advertise the tool schema's defaults")
	verbose   = flag.Bool("verbose", false, "Enable debug logging")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("emigo-worker %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// A Worker never writes application logs to stdout: stdout is the IPC
	// channel back to the Orchestrator. Route everything to stderr.
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

	// The tool registry here is never executed: Execute is only ever
	// called orchestrator-side, where permission gating and the real
	// per-session working directory apply. This registry exists solely to
	// advertise the fixed (name, description, parameters) triple every
	// tool has, for the system prompt.
	reg := tool.DefaultRegistry(workDir, permission.NewChecker(), permission.DefaultPolicy())
	tools := toolSchemas(reg)

	w := worker.New(os.Stdin, os.Stdout, providers, tools)
	if err := w.Run(ctx); err != nil {
		log.Fatalf("Worker exited with error: %v", err)
	}
}

func toolSchemas(reg *tool.Registry) []worker.ToolSchema {
	descs := reg.Descriptors()
	out := make([]worker.ToolSchema, 0, len(descs))
	for _, d := range descs {
		out = append(out, worker.ToolSchema{
			Name:        d.ID,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return out
}
