package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/whirlun/emigo-go/internal/orchestrator"
)

// yesOrNoTimeout bounds how long a synchronous YesOrNo question waits for
// the frontend's answer before giving up, so a stuck or closed frontend
// can't wedge a cancel-and-restart decision forever.
const yesOrNoTimeout = 2 * time.Minute

// Conn implements orchestrator.Frontend by encoding each call as an
// "event" form (fire-and-forget) written to the socket, except YesOrNo,
// which is the one call that must block for an answer and so is sent as a
// "query" correlated by id.
var _ orchestrator.Frontend = (*Conn)(nil)

func (c *Conn) StreamChunk(session, content, role, toolID, toolName string) {
	c.send(List{Symbol("event"), Symbol("stream_chunk"), session, content, role, toolID, toolName})
}

func (c *Conn) InteractionFinished(session string) {
	c.send(List{Symbol("event"), Symbol("interaction_finished"), session})
}

func (c *Conn) FileWrittenExternally(absPath string) {
	c.send(List{Symbol("event"), Symbol("file_written_externally"), absPath})
}

func (c *Conn) CompletionSignalled(session, text, command string) {
	c.send(List{Symbol("event"), Symbol("completion_signalled"), session, text, command})
}

func (c *Conn) ClearLocalBuffer(session string) {
	c.send(List{Symbol("event"), Symbol("clear_local_buffer"), session})
}

func (c *Conn) Message(text string) {
	c.send(List{Symbol("event"), Symbol("message"), text})
}

// YesOrNo sends a (query id yes_or_no "question") form and blocks for the
// frontend's (answer id t|nil).
func (c *Conn) YesOrNo(ctx context.Context, question string) (bool, error) {
	id := ulid.Make().String()
	ch := make(chan List, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.send(List{Symbol("query"), id, Symbol("yes_or_no"), question})

	timeout := time.After(yesOrNoTimeout)
	select {
	case result := <-ch:
		if len(result) != 1 {
			return false, fmt.Errorf("rpc: malformed yes_or_no answer")
		}
		b, ok := result[0].(bool)
		if !ok {
			return false, fmt.Errorf("rpc: yes_or_no answer must be t or nil")
		}
		return b, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timeout:
		return false, fmt.Errorf("rpc: yes_or_no timed out waiting for frontend")
	}
}
