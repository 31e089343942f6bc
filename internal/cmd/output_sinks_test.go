package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/output"
)

func newOutputCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestResolveOutputFormat(t *testing.T) {
	format, err := resolveOutputFormat(newOutputCommand(t))
	require.NoError(t, err)
	assert.Equal(t, output.FormatTable, format)

	format, err = resolveOutputFormat(newOutputCommand(t, "-o", "md"))
	require.NoError(t, err)
	assert.Equal(t, output.FormatMarkdown, format)

	_, err = resolveOutputFormat(newOutputCommand(t, "--output", "xml"))
	assert.Error(t, err)
}

func TestEmitWritesToOutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.json")
	cmd := newOutputCommand(t, "--output", "json", "--out", path)

	profile := &core.UserProfile{ID: "u-1", Email: "jane@example.com", Plan: core.PlanPremiumPro, CreditsRemaining: 100}
	require.NoError(t, emit(cmd, func(f output.Formatter) (string, error) { return f.FormatProfile(profile) }))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), raw[len(raw)-1])

	var decoded core.UserProfile
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "u-1", decoded.ID)
	assert.Equal(t, core.PlanPremiumPro, decoded.Plan)
	assert.Equal(t, 100, decoded.CreditsRemaining)
}

func TestEmitStopsOnFormatterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	cmd := newOutputCommand(t, "--out", path)

	err := emit(cmd, func(output.Formatter) (string, error) { return "", assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEmitDefaultsToCommandOutput(t *testing.T) {
	cmd := newOutputCommand(t, "-o", "json")
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	profile := &core.UserProfile{ID: "u-2", Plan: core.PlanFree, CreditsRemaining: 3}
	require.NoError(t, emit(cmd, func(f output.Formatter) (string, error) { return f.FormatProfile(profile) }))
	assert.Contains(t, buf.String(), `"u-2"`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestOpenSinkStdout(t *testing.T) {
	var buf bytes.Buffer
	w, closeSink, err := openSink(&buf, "-")
	require.NoError(t, err)
	assert.Same(t, &buf, w)
	assert.NoError(t, closeSink())
}
