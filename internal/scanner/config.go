package scanner

import (
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"zynx/internal/errkind"
	"zynx/internal/model"
)

// fileConfig mirrors zynx-configs.toml's single [filter] section (§6).
// Variant-specific keys (path, args, prefix) all live flat in the same
// section, discriminated by type; unused keys for whichever variant is
// active are simply never read, which is what §6 means by "additional
// keys are tolerated (ignored) for forward compatibility."
type fileConfig struct {
	Filter filterSection `toml:"filter"`
}

type filterSection struct {
	Type   string   `toml:"type"`
	Path   string   `toml:"path"`
	Args   []string `toml:"args"`
	Prefix string   `toml:"prefix"`
}

// parseFilterConfig parses one zynx-configs.toml document, grounded on
// internal/config/config.go's LoadConfig: parse, then validate required
// fields, wrapping every failure so the scanner can log and skip rather
// than abort the whole scan.
func parseFilterConfig(data []byte) (model.FilterConfig, error) {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return model.FilterConfig{}, errkind.New(errkind.ConfigParse, fmt.Errorf("parse zynx-configs.toml: %w", err))
	}

	switch fc.Filter.Type {
	case "stdio":
		if err := requireAbsPath(fc.Filter.Path); err != nil {
			return model.FilterConfig{}, err
		}
		return model.FilterConfig{
			Kind:      model.FilterStdio,
			StdioPath: fc.Filter.Path,
			StdioArgs: append([]string(nil), fc.Filter.Args...),
		}, nil

	case "socket_file":
		if err := requireAbsPath(fc.Filter.Path); err != nil {
			return model.FilterConfig{}, err
		}
		return model.FilterConfig{Kind: model.FilterSocketFile, SocketPath: fc.Filter.Path}, nil

	case "unix_abstract":
		if fc.Filter.Prefix == "" {
			return model.FilterConfig{}, errkind.New(errkind.ConfigParse, fmt.Errorf("[filter] type=unix_abstract requires prefix"))
		}
		return model.FilterConfig{Kind: model.FilterUnixAbstract, AbstractPrefix: fc.Filter.Prefix}, nil

	case "":
		return model.FilterConfig{}, errkind.New(errkind.ConfigParse, fmt.Errorf("missing [filter] section or type"))

	default:
		return model.FilterConfig{}, errkind.New(errkind.ConfigParse, fmt.Errorf("unknown filter type %q", fc.Filter.Type))
	}
}

func requireAbsPath(path string) error {
	if path == "" {
		return errkind.New(errkind.ConfigParse, fmt.Errorf("[filter] path is required"))
	}
	if !filepath.IsAbs(path) {
		return errkind.New(errkind.ConfigParse, fmt.Errorf("[filter] path must be absolute, got %q", path))
	}
	return nil
}
