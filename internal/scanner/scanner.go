// Package scanner implements §4.6: a one-shot enumeration of module
// directories that opts modules in by the presence of zynx-configs.toml,
// skipping disabled or misconfigured modules, and constructing one
// Adapter per accepted module.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zynx/internal/adapter"
	"zynx/internal/model"
	"zynx/internal/transport"
)

const configFileName = "zynx-configs.toml"
const disableMarkerName = "disable"

// SkipReason records why a module directory was not turned into an
// adapter. The daemon logs every SkipReason at startup so operators can see
// what the one-shot scan decided and why; the diagnostics server does not
// report them.
type SkipReason struct {
	ModuleID string
	Reason   string
}

// Report is the result of one Scan: the adapters built, plus every module
// directory that was skipped and why.
type Report struct {
	Adapters []*adapter.Adapter
	Skipped  []SkipReason
}

// Scan enumerates the immediate subdirectories of root, parsing each
// opted-in module's configuration and constructing an Adapter for it.
func Scan(root string) (*Report, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read modules root %q: %w", root, err)
	}

	report := &Report{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		moduleID := entry.Name()
		dir := filepath.Join(root, moduleID)

		if _, err := os.Stat(filepath.Join(dir, disableMarkerName)); err == nil {
			report.Skipped = append(report.Skipped, SkipReason{ModuleID: moduleID, Reason: "disabled"})
			continue
		}

		configPath := filepath.Join(dir, configFileName)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				// Module did not opt in; not an error, just silent.
				continue
			}
			reason := fmt.Sprintf("read %s: %v", configFileName, err)
			slog.Warn("skipping module", "module", moduleID, "reason", reason)
			report.Skipped = append(report.Skipped, SkipReason{ModuleID: moduleID, Reason: reason})
			continue
		}

		filter, err := parseFilterConfig(data)
		if err != nil {
			slog.Warn("skipping module: invalid config", "module", moduleID, "err", err)
			report.Skipped = append(report.Skipped, SkipReason{ModuleID: moduleID, Reason: err.Error()})
			continue
		}

		desc := model.ModuleDescriptor{ModuleID: moduleID, Dir: dir, Filter: filter}
		report.Adapters = append(report.Adapters, adapter.New(desc, transportFor(filter)))
	}

	return report, nil
}

func transportFor(filter model.FilterConfig) transport.Transport {
	switch filter.Kind {
	case model.FilterStdio:
		return transport.NewStdio(filter.StdioPath, filter.StdioArgs)
	case model.FilterSocketFile:
		return transport.NewSocketFile(filter.SocketPath)
	case model.FilterUnixAbstract:
		return transport.NewUnixAbstract(filter.AbstractPrefix)
	default:
		// parseFilterConfig never returns a FilterConfig with any other
		// Kind; unreachable in practice.
		panic(fmt.Sprintf("scanner: unhandled filter kind %v", filter.Kind))
	}
}
