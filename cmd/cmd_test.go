// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/farbler/internal/divergence"
	"github.com/xkilldash9x/farbler/internal/farbling"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// runCommand executes a fresh command tree with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	original := configName
	configName = "a-config-file-that-does-not-exist"
	t.Cleanup(func() { configName = original })

	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeInspect(t *testing.T, out string) InspectReport {
	t.Helper()
	var report InspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "farbler version "+Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "farbler version "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := runCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Farbler derives session-scoped fingerprinting noise per site.")
}

func TestInspectCmd(t *testing.T) {
	t.Setenv("FARBLER_SESSION_KEY", testKeyHex)

	t.Run("balanced report", func(t *testing.T) {
		out, err := runCommand(t, "inspect", "--url", "https://www.example.com/page", "--level", "balanced",
			"--real-plugins", "Alpha,Beta", "--cores", "8", "--samples", "4")
		require.NoError(t, err)

		report := decodeInspect(t, out)
		assert.Equal(t, "example.com", report.Site)
		assert.Equal(t, farbling.Balanced, report.Level)
		assert.NotEmpty(t, report.SessionID)
		assert.Len(t, report.Plugins, 4)
		assert.GreaterOrEqual(t, report.HardwareConcurrency, 2)
		assert.LessOrEqual(t, report.HardwareConcurrency, 8)
		assert.Len(t, report.AudioTimeDomain, 4)
		assert.Len(t, report.AudioFrequencyBytes, 4)
		require.Len(t, report.CanvasPixel, 4)
		assert.Equal(t, 0xff, report.CanvasPixel[3], "alpha is preserved")
	})

	t.Run("stable for a fixed session key", func(t *testing.T) {
		args := []string{"inspect", "--url", "https://example.com", "--level", "maximum", "--cores", "16"}
		first, err := runCommand(t, args...)
		require.NoError(t, err)
		second, err := runCommand(t, args...)
		require.NoError(t, err)

		a, b := decodeInspect(t, first), decodeInspect(t, second)
		assert.NotEqual(t, a.SessionID, b.SessionID)
		a.SessionID, b.SessionID = "", ""
		assert.Equal(t, a, b)
		assert.Len(t, a.Plugins, 2)
	})

	t.Run("off passes real data through", func(t *testing.T) {
		out, err := runCommand(t, "inspect", "--url", "https://example.com", "--level", "off",
			"--real-plugins", "Alpha,Beta", "--cores", "6")
		require.NoError(t, err)

		report := decodeInspect(t, out)
		require.Len(t, report.Plugins, 2)
		assert.Equal(t, "Alpha", report.Plugins[0].Name)
		assert.Equal(t, "alpha.so", report.Plugins[0].Filename)
		assert.Equal(t, "Beta", report.Plugins[1].Name)
		assert.Equal(t, 6, report.HardwareConcurrency)
		assert.Equal(t, []int{0x66, 0x99, 0xcc, 0xff}, report.CanvasPixel)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := runCommand(t, "inspect")
		assert.ErrorContains(t, err, `required flag(s) "url" not set`)
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := runCommand(t, "inspect", "--url", "https://example.com", "--level", "paranoid")
		assert.ErrorIs(t, err, farbling.ErrUnknownLevel)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := runCommand(t, "inspect", "--url", "nohost")
		assert.ErrorIs(t, err, farbling.ErrInvalidURL)
	})
}

func TestInspectCmd_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farbler.yaml")
	content := strings.Join([]string{
		"logger:",
		"  level: error",
		"farbling:",
		"  default_level: maximum",
		"  rules:",
		`    - pattern: "*.trusted.org"`,
		`      level: "off"`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := runCommand(t, "--config", path, "inspect", "--url", "https://app.trusted.org")
	require.NoError(t, err)
	assert.Equal(t, farbling.Off, decodeInspect(t, out).Level)

	out, err = runCommand(t, "--config", path, "inspect", "--url", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, farbling.Maximum, decodeInspect(t, out).Level)

	_, err = runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	assert.NoError(t, err, "version does not load configuration")

	_, err = runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "inspect", "--url", "https://example.com")
	assert.ErrorContains(t, err, "failed to initialize configuration")
}

func TestInspectCmd_InvalidConfig(t *testing.T) {
	t.Setenv("FARBLER_SESSION_KEY", "zz")
	_, err := runCommand(t, "inspect", "--url", "https://example.com")
	assert.ErrorContains(t, err, "failed to load or validate config")
}

func TestDivergenceCmd(t *testing.T) {
	out, err := runCommand(t, "divergence", "--samples", "25", "--concurrency", "2", "--cores", "8")
	require.NoError(t, err)

	var report divergence.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 25, report.Samples)
	assert.Equal(t, farbling.Balanced, report.Level)
	assert.Zero(t, report.SessionStringCollisions)

	_, err = runCommand(t, "divergence", "--level", "nope")
	assert.ErrorIs(t, err, farbling.ErrUnknownLevel)

	_, err = runCommand(t, "divergence", "--samples", "-1")
	assert.ErrorContains(t, err, "divergence.samples must be a positive integer")
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}
