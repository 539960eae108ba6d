package orchestrator

import (
	"context"
	"sync"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/permission"
	"github.com/whirlun/emigo-go/internal/provider"
	"github.com/whirlun/emigo-go/internal/session"
	"github.com/whirlun/emigo-go/internal/tool"
	"github.com/whirlun/emigo-go/pkg/types"
)

// Orchestrator supervises the Worker subprocess, serves the frontend RPC
// surface, and routes messages between them.
type Orchestrator struct {
	cfg       *types.Config
	store     *session.Store
	providers *provider.Registry
	frontend  Frontend
	workerCmd []string

	permChecker *permission.Checker
	policy      permission.Policy

	mu            sync.Mutex
	activeSession string            // directory of the session with an interaction in flight, "" if none
	pendingTools  map[string]string // request_id -> tool name, for the Worker's outstanding tool_requests
	proc          *workerProcess
	ctx           context.Context // Start's context, reused to respawn the Worker after a crash

	regMu          sync.Mutex
	toolRegistries map[string]*tool.Registry // directory -> per-session tool registry, cached like the Session Store
}

// New builds an Orchestrator. workerCmd is the Worker binary's argv
// (command followed by any flags), spawned fresh on Start and again after
// every cancel-and-restart.
func New(cfg *types.Config, store *session.Store, providers *provider.Registry, frontend Frontend, workerCmd []string) *Orchestrator {
	return &Orchestrator{
		cfg:            cfg,
		store:          store,
		providers:      providers,
		frontend:       frontend,
		workerCmd:      workerCmd,
		permChecker:    permission.NewChecker(),
		policy:         policyFromConfig(cfg),
		pendingTools:   make(map[string]string),
		toolRegistries: make(map[string]*tool.Registry),
	}
}

// Start spawns the Worker subprocess and begins routing its messages.
func (o *Orchestrator) Start(ctx context.Context) error {
	proc, err := spawnWorker(ctx, o.workerCmd)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.ctx = ctx
	o.proc = proc
	o.mu.Unlock()

	go o.routeLoop(proc)
	return nil
}

// Stop terminates the Worker subprocess and stops routing. It is safe to
// call even if no Worker is currently running.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	proc := o.proc
	o.proc = nil
	o.mu.Unlock()

	if proc != nil {
		proc.terminate()
	}
}

// toolRegistryFor returns the tool.Registry bound to directory, building
// and caching one on first use the same way the Session Store caches
// session state per directory.
func (o *Orchestrator) toolRegistryFor(directory string) *tool.Registry {
	o.regMu.Lock()
	defer o.regMu.Unlock()

	if reg, ok := o.toolRegistries[directory]; ok {
		return reg
	}
	reg := tool.DefaultRegistry(directory, o.permChecker, o.policy)
	o.toolRegistries[directory] = reg
	return reg
}

// interactionConfig builds the per-interaction LLM config the Worker needs
// to resolve a provider, from the process-wide model selection.
func (o *Orchestrator) interactionConfig() ipc.Config {
	providerID, _ := provider.ParseModelString(o.cfg.Model)
	if providerID == "" {
		providerID = "anthropic"
	}
	pc := o.cfg.Provider[providerID]
	return ipc.Config{
		Model:        o.cfg.Model,
		APIKey:       pc.APIKey,
		BaseURL:      pc.BaseURL,
		Verbose:      o.cfg.Verbose,
		ExtraHeaders: pc.ExtraHeaders,
	}
}
