// Package rpc implements the Frontend ↔ Orchestrator channel: a local Unix
// domain socket carrying S-expression payloads, one balanced form per
// call. This is the literal wire contract an Emacs-style frontend expects
// (read-from-string/prin1 on the Lisp side), which is why the codec here
// is hand-rolled against the standard library rather than built on a
// pack library — no S-expression codec exists anywhere in the example
// corpus, and the wire format itself is not optional.
//
// Each accepted connection is treated as one frontend. Incoming forms are
// decoded as (call id op arg...) and dispatched to the bound
// *orchestrator.Orchestrator; the reply is encoded as (reply id ok result...)
// or (reply id error "msg"). The same connection's Conn also
// implements orchestrator.Frontend, so the Orchestrator's own async
// notifications and its one synchronous YesOrNo question are written back
// over the same socket as outbound forms.
package rpc
