package rpc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlun/emigo-go/internal/orchestrator"
	"github.com/whirlun/emigo-go/internal/session"
	"github.com/whirlun/emigo-go/pkg/types"
)

// testRig wires a Conn (acting as the Orchestrator's Frontend) to a real
// Orchestrator over an in-memory net.Pipe, with the test itself playing
// the frontend on the other end of the pipe.
type testRig struct {
	client net.Conn
	dec    *Decoder
	orch   *orchestrator.Orchestrator
	store  *session.Store
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	conn := &Conn{nc: server, dec: NewDecoder(server), pending: make(map[string]chan List)}
	store := session.NewStore()
	cfg := &types.Config{Model: "anthropic/claude-sonnet-4-20250514"}
	orch := orchestrator.New(cfg, store, nil, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go conn.Serve(ctx, orch)

	return &testRig{client: client, dec: NewDecoder(client), orch: orch, store: store}
}

func (r *testRig) sendCall(id string, op Symbol, args ...any) {
	form := append(List{Symbol("call"), id, op}, args...)
	_, err := r.client.Write([]byte(Encode(form)))
	if err != nil {
		panic(err)
	}
}

func (r *testRig) recv(t *testing.T) List {
	t.Helper()
	type res struct {
		v   any
		err error
	}
	ch := make(chan res, 1)
	go func() {
		v, err := r.dec.Next()
		ch <- res{v, err}
	}()
	select {
	case out := <-ch:
		require.NoError(t, out.err)
		list, ok := AsList(out.v)
		require.True(t, ok)
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a form")
		return nil
	}
}

func TestDispatch_ListFiles_Empty(t *testing.T) {
	rig := newTestRig(t)
	dir := t.TempDir()

	rig.sendCall("1", "list_files", dir)

	reply := rig.recv(t)
	assert.Equal(t, Symbol("reply"), reply[0])
	assert.Equal(t, "1", reply[1])
	assert.Equal(t, Symbol("ok"), reply[2])
}

func TestDispatch_AddFile_SendsMessageEventThenReply(t *testing.T) {
	rig := newTestRig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	rig.sendCall("1", "add_file", dir, "a.txt")

	event := rig.recv(t)
	assert.Equal(t, Symbol("event"), event[0])
	assert.Equal(t, Symbol("message"), event[1])

	reply := rig.recv(t)
	assert.Equal(t, Symbol("reply"), reply[0])
	assert.Equal(t, Symbol("ok"), reply[2])

	assert.Equal(t, []string{"a.txt"}, rig.orch.ListFiles(dir))
}

func TestDispatch_UnknownOp_RepliesError(t *testing.T) {
	rig := newTestRig(t)

	rig.sendCall("1", "no_such_op")

	reply := rig.recv(t)
	assert.Equal(t, Symbol("reply"), reply[0])
	assert.Equal(t, Symbol("error"), reply[2])
}

func TestDispatch_History_RoundTrip(t *testing.T) {
	rig := newTestRig(t)
	dir := t.TempDir()
	rig.store.GetOrCreate(dir)
	rig.store.AppendMessage(dir, types.NewUserMessage("hello"))

	rig.sendCall("1", "history", dir)

	reply := rig.recv(t)
	assert.Equal(t, Symbol("ok"), reply[2])
	entries, ok := AsList(reply[3])
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry, ok := AsList(entries[0])
	require.True(t, ok)
	role, _ := AsString(entry[0])
	content, _ := AsString(entry[1])
	assert.Equal(t, "user", role)
	assert.Equal(t, "hello", content)
}

func TestDispatch_SubmitPrompt_NoWorker_RepliesError(t *testing.T) {
	rig := newTestRig(t)
	dir := t.TempDir()

	rig.sendCall("1", "submit_prompt", dir, "hi")

	reply := rig.recv(t)
	assert.Equal(t, Symbol("reply"), reply[0])
	assert.Equal(t, Symbol("error"), reply[2])
}
