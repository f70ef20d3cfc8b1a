package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zynx/internal/model"
)

func writeModule(t *testing.T, root, id, config string, disabled bool) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if disabled {
		require.NoError(t, os.WriteFile(filepath.Join(dir, disableMarkerName), nil, 0o644))
	}
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(config), 0o644))
	}
}

func TestScanAcceptsValidStdioModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "good-stdio", `
[filter]
type = "stdio"
path = "/data/adb/modules/good-stdio/filter"
args = ["--flag"]
`, false)

	report, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, report.Adapters, 1)
	assert.Equal(t, "good-stdio", report.Adapters[0].ModuleID())
	assert.Equal(t, model.FilterStdio, report.Adapters[0].FilterKind())
	assert.Empty(t, report.Skipped)
}

func TestScanSkipsDisabledModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "disabled-mod", `
[filter]
type = "socket_file"
path = "/data/adb/modules/disabled-mod/filter.sock"
`, true)

	report, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, report.Adapters)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "disabled", report.Skipped[0].Reason)
}

func TestScanSkipsModuleWithoutConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-config"), 0o755))

	report, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, report.Adapters)
	assert.Empty(t, report.Skipped)
}

func TestScanSkipsUnknownFilterType(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "bad-type", `
[filter]
type = "carrier_pigeon"
`, false)

	report, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, report.Adapters)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "unknown filter type")
}

func TestScanSkipsMissingRequiredField(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "no-prefix", `
[filter]
type = "unix_abstract"
`, false)

	report, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, report.Adapters)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "prefix")
}

func TestScanToleratesUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "extra-keys", `
[filter]
type = "unix_abstract"
prefix = "myapp_filter"
future_feature = true
`, false)

	report, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, report.Adapters, 1)
	assert.Equal(t, model.FilterUnixAbstract, report.Adapters[0].FilterKind())
}

func TestScanMultipleModulesIndependent(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "a", `
[filter]
type = "stdio"
path = "/data/adb/modules/a/filter"
`, false)
	writeModule(t, root, "b", `
[filter]
type = "nonsense"
`, false)
	writeModule(t, root, "c", `
[filter]
type = "socket_file"
path = "/data/adb/modules/c/filter.sock"
`, false)

	report, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, report.Adapters, 2)
	assert.Len(t, report.Skipped, 1)
}
