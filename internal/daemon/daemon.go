// Package daemon wires together a scan, a policy engine, the optional
// diagnostics and reporter subsystems, and the fork-event entry point,
// then runs until told to stop.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"zynx/internal/analyzer"
	"zynx/internal/codec"
	"zynx/internal/config"
	"zynx/internal/diagnostics"
	"zynx/internal/model"
	"zynx/internal/policy"
	"zynx/internal/scanner"
)

// Run scans cfg.ModulesRoot for adapters, starts the configured
// subsystems, and serves fork-event decision requests on cfg.DecideSock
// until a SIGINT/SIGTERM arrives.
//
// The real zygote-fork monitor (an out-of-scope eBPF/ptrace collaborator
// living outside this module) is expected to dial cfg.DecideSock once per
// fork and speak the same framing and TLV schema the adapters themselves
// use (internal/codec, internal/model) — one CheckArgsFast, one
// CheckResponse carrying the combined verdict. That reuse keeps the wire
// format to a single implementation and gives this daemon a runnable,
// testable entry point in the meantime.
func Run(cfg config.Config) error {
	report, err := scanner.Scan(cfg.ModulesRoot)
	if err != nil {
		return fmt.Errorf("scan modules: %w", err)
	}
	for _, skip := range report.Skipped {
		slog.Warn("module skipped at scan time", "module", skip.ModuleID, "reason", skip.Reason)
	}
	slog.Info("scan complete", "adapters", len(report.Adapters), "skipped", len(report.Skipped))

	engine := policy.New(report.Adapters)
	reporter := analyzer.New(cfg.Reporter)

	var diag *diagnostics.Server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if cfg.Diagnostics.Enabled {
		diag = diagnostics.NewServer(engine)
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("starting diagnostics server", "transport", cfg.Diagnostics.Transport)
			if err := diag.ServeStdio(ctx); err != nil {
				slog.Error("diagnostics server error", "err", err)
			}
		}()
	}

	listener, err := listenDecideSocket(cfg.DecideSock)
	if err != nil {
		return fmt.Errorf("listen decide socket: %w", err)
	}
	defer listener.Close()

	wg.Add(1)
	go func() {
		defer wg.Done()
		serveDecisions(ctx, listener, engine, reporter, diag)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("zynxd started", "modules_root", cfg.ModulesRoot, "decide_sock", cfg.DecideSock)

	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	cancel()
	_ = listener.Close()

	for _, a := range report.Adapters {
		if err := a.Teardown(); err != nil {
			slog.Warn("adapter teardown failed", "module", a.ModuleID(), "err", err)
		}
	}

	wg.Wait()
	return nil
}

func listenDecideSocket(path string) (net.Listener, error) {
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// serveDecisions accepts one connection per fork event: a single
// CheckArgsFast request answered with a single CheckResponse carrying the
// engine's overall verdict. The slow phase is not exposed at this outer
// boundary — the real caller decides up front whether it can supply slow
// args at all, so any adapter that responds MoreInfo is served synthetic
// slow args derived from the same fast args already received.
func serveDecisions(ctx context.Context, listener net.Listener, engine *policy.Engine, reporter *analyzer.DenyReporter, diag *diagnostics.Server) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				slog.Error("accept failed", "err", err)
				return
			}
		}
		go handleDecisionConn(ctx, conn, engine, reporter, diag)
	}
}

func handleDecisionConn(ctx context.Context, conn net.Conn, engine *policy.Engine, reporter *analyzer.DenyReporter, diag *diagnostics.Server) {
	defer conn.Close()

	data, err := codec.ReadMsg(conn)
	if err != nil {
		slog.Warn("decide connection: read fast args failed", "err", err)
		return
	}
	fast, err := codec.DecodeCheckArgsFast(data)
	if err != nil {
		slog.Warn("decide connection: decode fast args failed", "err", err)
		return
	}

	slowProvider := func(ctx context.Context) model.SlowArgs {
		return model.SlowArgs{Fast: fast}
	}

	results := engine.Evaluate(ctx, fast, slowProvider)
	overall := policy.Overall(results)

	if diag != nil {
		diag.RecordResults(results)
	}
	if overall == model.Deny {
		reporter.Report(fast, results, func(err error) {
			slog.Warn("deny report delivery failed", "err", err)
		})
	}

	if err := codec.WriteMsg(conn, codec.EncodeCheckResponse(overall)); err != nil {
		slog.Warn("decide connection: write response failed", "err", err)
	}
}
