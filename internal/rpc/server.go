package rpc

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/orchestrator"
	"github.com/whirlun/emigo-go/pkg/types"
)

// Listen creates the Unix domain socket at path, removing a stale one left
// behind by an unclean shutdown first.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("rpc: removing stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen on %s: %w", path, err)
	}
	return ln, nil
}

// Conn is one frontend connection. It satisfies orchestrator.Frontend, and
// once bound to an Orchestrator via Serve it also dispatches the
// frontend's own incoming calls. Five form shapes are multiplexed on the
// single socket:
//
//	(call <id> <op> arg...)   frontend -> orchestrator request
//	(reply <id> ok result...) | (reply <id> error "msg")   the matching reply
//	(event <op> arg...)       orchestrator -> frontend notification, no reply
//	(query <id> <op> arg...)  orchestrator -> frontend synchronous question
//	(answer <id> result...)  the frontend's reply to a query
//
// Calls run concurrently (each dispatched on its own goroutine, replies
// correlated by id): one synchronous approval prompt must not stall
// unrelated frontend operations like list_files.
type Conn struct {
	nc net.Conn
	dec *Decoder

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan List // query id -> channel awaiting its answer
}

// Accept blocks for the next frontend connection on ln and wraps it.
func Accept(ln net.Listener) (*Conn, error) {
	nc, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return &Conn{
		nc:      nc,
		dec:     NewDecoder(nc),
		pending: make(map[string]chan List),
	}, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// Serve reads and dispatches the frontend's calls against orch until the
// connection closes or ctx is cancelled. It blocks; call it on its own
// goroutine to keep using orch from elsewhere (Conn itself is already safe
// for concurrent use as a Frontend while Serve runs).
func (c *Conn) Serve(ctx context.Context, orch *orchestrator.Orchestrator) {
	go func() {
		<-ctx.Done()
		_ = c.nc.Close()
	}()

	for {
		form, err := c.dec.Next()
		if err != nil {
			return
		}
		list, ok := AsList(form)
		if !ok || len(list) == 0 {
			logging.Logger.Warn().Msg("rpc: ignoring malformed form")
			continue
		}
		tag, _ := AsSymbol(list[0])
		switch tag {
		case "call":
			go c.handleCall(ctx, orch, list)
		case "answer":
			c.handleAnswer(list)
		default:
			logging.Logger.Warn().Str("tag", string(tag)).Msg("rpc: unexpected form from frontend")
		}
	}
}

func (c *Conn) send(form List) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.nc.Write([]byte(Encode(form) + "\n")); err != nil {
		logging.Logger.Warn().Err(err).Msg("rpc: write failed")
	}
}

// handleCall dispatches one (call id op arg...) form and writes back its
// (reply id ok|error ...).
func (c *Conn) handleCall(ctx context.Context, orch *orchestrator.Orchestrator, list List) {
	if len(list) < 3 {
		return
	}
	id, _ := AsString(list[1])
	opSym, _ := AsSymbol(list[2])
	args := list[3:]

	result, err := dispatch(ctx, orch, string(opSym), args)
	if err != nil {
		c.send(List{Symbol("reply"), id, Symbol("error"), err.Error()})
		return
	}
	c.send(append(List{Symbol("reply"), id, Symbol("ok")}, result...))
}

func dispatch(ctx context.Context, orch *orchestrator.Orchestrator, op string, args List) (List, error) {
	switch op {
	case "submit_prompt":
		session, text, err := stringPair(args)
		if err != nil {
			return nil, err
		}
		return nil, orch.SubmitPrompt(ctx, session, text)

	case "submit_revised_history":
		if len(args) != 2 {
			return nil, fmt.Errorf("rpc: submit_revised_history wants (session history)")
		}
		session, ok := AsString(args[0])
		if !ok {
			return nil, fmt.Errorf("rpc: submit_revised_history: session must be a string")
		}
		historyList, ok := AsList(args[1])
		if !ok {
			return nil, fmt.Errorf("rpc: submit_revised_history: history must be a list")
		}
		messages, err := decodeHistory(historyList)
		if err != nil {
			return nil, err
		}
		return nil, orch.SubmitRevisedHistory(ctx, session, messages)

	case "cancel":
		session, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		return nil, orch.Cancel(ctx, session)

	case "add_file":
		session, path, err := stringPair(args)
		if err != nil {
			return nil, err
		}
		return nil, orch.AddFile(session, path)

	case "remove_file":
		session, path, err := stringPair(args)
		if err != nil {
			return nil, err
		}
		return nil, orch.RemoveFile(session, path)

	case "list_files":
		session, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		return List{encodeStringList(orch.ListFiles(session))}, nil

	case "history":
		session, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		return List{encodeHistory(orch.GetHistory(session))}, nil

	case "clear_history":
		session, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		orch.ClearHistory(session)
		return nil, nil

	default:
		return nil, fmt.Errorf("rpc: unknown operation %q", op)
	}
}

func (c *Conn) handleAnswer(list List) {
	if len(list) < 2 {
		return
	}
	id, ok := AsString(list[1])
	if !ok {
		return
	}
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	ch <- list[2:]
}

func stringArg(args List) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("rpc: expected exactly one string argument, got %d", len(args))
	}
	s, ok := AsString(args[0])
	if !ok {
		return "", fmt.Errorf("rpc: argument must be a string")
	}
	return s, nil
}

func stringPair(args List) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("rpc: expected exactly two string arguments, got %d", len(args))
	}
	a, ok := AsString(args[0])
	if !ok {
		return "", "", fmt.Errorf("rpc: first argument must be a string")
	}
	b, ok := AsString(args[1])
	if !ok {
		return "", "", fmt.Errorf("rpc: second argument must be a string")
	}
	return a, b, nil
}

func encodeStringList(ss []string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = s
	}
	return l
}

// decodeHistory turns a history arg, a list of (role content) pairs, into
// session messages.
func decodeHistory(forms List) ([]types.Message, error) {
	messages := make([]types.Message, 0, len(forms))
	for _, f := range forms {
		entry, ok := AsList(f)
		if !ok || len(entry) != 2 {
			return nil, fmt.Errorf("rpc: history entry must be a (role content) pair")
		}
		role, ok := AsString(entry[0])
		if !ok {
			return nil, fmt.Errorf("rpc: history entry role must be a string")
		}
		content, ok := AsString(entry[1])
		if !ok {
			return nil, fmt.Errorf("rpc: history entry content must be a string")
		}
		messages = append(messages, types.Message{Role: types.Role(role), Content: content})
	}
	return messages, nil
}

func encodeHistory(messages []types.Message) List {
	l := make(List, len(messages))
	for i, m := range messages {
		l[i] = List{string(m.Role), m.Content}
	}
	return l
}
