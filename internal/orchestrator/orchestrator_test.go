package orchestrator

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/session"
	"github.com/whirlun/emigo-go/pkg/types"
)

// fakeFrontend records every call made against the Frontend interface so
// tests can assert on what the orchestrator told the frontend to do.
type fakeFrontend struct {
	mu sync.Mutex

	streamed     []streamCall
	finished     []string
	written      []string
	signalled    []completionCall
	cleared      []string
	messages     []string
	yesOrNoReply bool
	yesOrNoErr   error
	yesOrNoCalls int
}

type streamCall struct {
	session, content, role, toolID, toolName string
}

type completionCall struct {
	session, text, command string
}

func (f *fakeFrontend) StreamChunk(session, content, role, toolID, toolName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed = append(f.streamed, streamCall{session, content, role, toolID, toolName})
}

func (f *fakeFrontend) InteractionFinished(session string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, session)
}

func (f *fakeFrontend) FileWrittenExternally(absPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, absPath)
}

func (f *fakeFrontend) CompletionSignalled(session, text, command string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signalled = append(f.signalled, completionCall{session, text, command})
}

func (f *fakeFrontend) ClearLocalBuffer(session string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, session)
}

func (f *fakeFrontend) Message(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

func (f *fakeFrontend) YesOrNo(ctx context.Context, question string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.yesOrNoCalls++
	return f.yesOrNoReply, f.yesOrNoErr
}

func (f *fakeFrontend) lastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

// pipeWorker bundles a workerProcess wired over in-memory pipes with the
// test-side ends needed to read what the orchestrator sends it and feed it
// simulated Worker events, without spawning a real subprocess.
type pipeWorker struct {
	proc     *workerProcess
	fromOrch *ipc.Reader // what the orchestrator sent, as seen by the "worker"
	toOrch   *ipc.Writer // how the test plays the "worker" sending events
}

func newPipeWorker() *pipeWorker {
	orchToWorkerR, orchToWorkerW := io.Pipe()
	workerToOrchR, workerToOrchW := io.Pipe()

	return &pipeWorker{
		proc: &workerProcess{
			writer: ipc.NewWriter(orchToWorkerW),
			reader: ipc.NewReader(workerToOrchR),
			exited: make(chan struct{}),
		},
		fromOrch: ipc.NewReader(orchToWorkerR),
		toOrch:   ipc.NewWriter(workerToOrchW),
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *session.Store, *fakeFrontend) {
	t.Helper()
	store := session.NewStore()
	frontend := &fakeFrontend{}
	cfg := &types.Config{
		Model:    "anthropic/claude-sonnet-4-20250514",
		Provider: map[string]types.ProviderConfig{"anthropic": {APIKey: "test-key"}},
	}
	o := New(cfg, store, nil, frontend, nil)
	return o, store, frontend
}
