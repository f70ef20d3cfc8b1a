// Package adapter implements the per-module Adapter of §4.5: the single
// `check(fast, slow_provider) -> Verdict` operation that drives one
// two-phase exchange over a transport and never lets a failure escape as
// an error — every failure becomes Deny, logged with the module id and
// error kind, exactly as §7 requires.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zynx/internal/codec"
	"zynx/internal/errkind"
	"zynx/internal/model"
	"zynx/internal/transport"
)

// SlowProvider obtains the expensive slow-phase arguments. The caller
// supplies it; the adapter only invokes it when a filter's fast response
// is MoreInfo (§4.5 step 7a), since in the real system this reads live
// JVM state and is not cheap.
type SlowProvider func(ctx context.Context) model.SlowArgs

// Adapter owns one module's transport configuration and, for Stdio, the
// transport's long-lived child process. Exchanges are serialized per
// adapter via mu (§5: "Concurrent check calls on the same adapter queue
// on a mutex") regardless of transport variant — mandatory for Stdio's
// single pipe pair, a chosen invariant for the socket variants.
type Adapter struct {
	desc      model.ModuleDescriptor
	transport transport.Transport

	mu sync.Mutex
}

// New constructs an Adapter. It does not open any connection or spawn any
// process — that happens lazily on the first Check.
func New(desc model.ModuleDescriptor, t transport.Transport) *Adapter {
	return &Adapter{desc: desc, transport: t}
}

func (a *Adapter) ModuleID() string { return a.desc.ModuleID }

func (a *Adapter) FilterKind() model.FilterKind { return a.desc.Filter.Kind }

// Teardown terminates the adapter's transport-owned resources (the Stdio
// child, if any) and closes its streams. Called on daemon shutdown or
// adapter removal (§3).
func (a *Adapter) Teardown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transport.Teardown()
}

// Check runs one exchange against the filter and returns its verdict.
// Every failure at any step is swallowed into Deny per §7; Check itself
// never returns an error.
func (a *Adapter) Check(ctx context.Context, fast model.FastArgs, slow SlowProvider) model.Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	verdict, err := a.exchange(ctx, fast, slow)
	if err != nil {
		slog.Warn("adapter check failed, denying",
			"module", a.desc.ModuleID,
			"kind", errkind.KindOf(err),
			"elapsed", time.Since(start),
			"err", err,
		)
		return model.Deny
	}
	return verdict
}

// exchange implements the state machine of §4.5: Idle -> Connected ->
// FastAnswered -> (SlowAnswered) -> Idle.
func (a *Adapter) exchange(ctx context.Context, fast model.FastArgs, slow SlowProvider) (model.Verdict, error) {
	conn, err := a.transport.Open(ctx)
	if err != nil {
		return model.Deny, err
	}

	closed := false
	closeConn := func() {
		if !closed {
			_ = a.transport.Close(conn)
			closed = true
		}
	}
	defer closeConn()

	if err := codec.WriteMsg(conn, codec.EncodeCheckArgsFast(fast)); err != nil {
		return model.Deny, err
	}

	fastResp, err := codec.ReadMsg(conn)
	if err != nil {
		return model.Deny, err
	}
	r1, err := codec.DecodeCheckResponse(fastResp)
	if err != nil {
		return model.Deny, err
	}

	if r1 == model.Allow || r1 == model.Deny {
		closeConn()
		return r1, nil
	}

	// r1 == MoreInfo: fetch the expensive slow args and continue the
	// exchange on the same connection.
	slowArgs := slow(ctx)
	if err := codec.WriteMsg(conn, codec.EncodeCheckArgsSlow(slowArgs)); err != nil {
		return model.Deny, err
	}

	slowResp, err := codec.ReadMsg(conn)
	if err != nil {
		return model.Deny, err
	}
	r2, err := codec.DecodeCheckResponse(slowResp)
	if err != nil {
		return model.Deny, err
	}
	closeConn()

	if r2 == model.MoreInfo {
		// A second MoreInfo is a protocol violation (§4.5 step 7e); the
		// exchange still ends cleanly, but the verdict is Deny.
		return model.Deny, errkind.New(errkind.ProtocolViolation, fmt.Errorf("filter returned MORE_INFO in slow phase"))
	}
	return r2, nil
}
