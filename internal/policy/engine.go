// Package policy implements §4.7: the fan-out that hands one fork event
// to every adapter and collects per-adapter verdicts.
package policy

import (
	"context"
	"sync"

	"zynx/internal/adapter"
	"zynx/internal/model"
)

// Result pairs an adapter's module id with the verdict it produced for one
// fork event.
type Result struct {
	ModuleID string
	Verdict  model.Verdict
}

// Engine holds the adapter set built by a scan. The set is immutable after
// construction (§5: "the adapter set (immutable after scan)"), so Evaluate
// needs no lock of its own beyond what each Adapter already serializes.
type Engine struct {
	adapters []*adapter.Adapter
}

// New builds an Engine over the given adapters. Order is preserved in
// Evaluate's results but carries no other meaning — adapters are
// independent (§4.7).
func New(adapters []*adapter.Adapter) *Engine {
	return &Engine{adapters: append([]*adapter.Adapter(nil), adapters...)}
}

// Adapters returns the engine's adapter set, for diagnostics introspection.
func (e *Engine) Adapters() []*adapter.Adapter {
	return append([]*adapter.Adapter(nil), e.adapters...)
}

// Evaluate calls check(fast, slow) on every adapter concurrently and
// returns one Result per adapter. Inter-adapter fan-out runs fully
// concurrent rather than short-circuiting on the first Deny: §5 permits
// either, and running every adapter to completion maximizes the fault
// isolation guarantee of §8 ("for all adapter pairs (A, B) where A always
// errors, B's verdicts are unaffected") by never letting one adapter's
// failure suppress another's verdict from being observed.
func (e *Engine) Evaluate(ctx context.Context, fast model.FastArgs, slow adapter.SlowProvider) []Result {
	results := make([]Result, len(e.adapters))

	var wg sync.WaitGroup
	for i, a := range e.adapters {
		wg.Add(1)
		go func(i int, a *adapter.Adapter) {
			defer wg.Done()
			v := a.Check(ctx, fast, slow)
			results[i] = Result{ModuleID: a.ModuleID(), Verdict: v}
		}(i, a)
	}
	wg.Wait()

	return results
}

// Overall combines per-adapter results with the policy engine's own
// combinator: Deny if any adapter denies, Allow otherwise. §4.7 leaves the
// overall combinator to the caller; this is the daemon's chosen default,
// exposed here so callers don't all have to reimplement it.
func Overall(results []Result) model.Verdict {
	for _, r := range results {
		if r.Verdict == model.Deny {
			return model.Deny
		}
	}
	return model.Allow
}
