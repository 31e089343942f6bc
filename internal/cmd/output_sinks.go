package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/output"
)

// addOutputFlags registers --output and --out on commands that print
// searches, history or profiles.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "output format: table, json, markdown")
	cmd.Flags().String("out", "", "write output to this file instead of stdout")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// openSink opens path for writing, creating parent directories. An empty
// path or "-" selects stdout, whose close is a no-op.
func openSink(stdout io.Writer, path string) (io.Writer, func() error, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// emit renders with the --output formatter and writes the text, newline
// terminated, to the --out sink. Nothing is opened when rendering fails.
func emit(cmd *cobra.Command, render func(output.Formatter) (string, error)) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	text, err := render(output.NewFormatter(format))
	if err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	w, closeSink, err := openSink(cmd.OutOrStdout(), outPath)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		_ = closeSink()
		return err
	}
	return closeSink()
}
