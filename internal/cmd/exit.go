package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ExitWithCode logs msg and err with the foundry metadata of exitCode, then
// exits. A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}
	if logger == nil {
		writeFatal(info.Code, info.Name, info.Description, msg, err)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_description", info.Description),
		zap.String("exit_category", info.Category),
	}
	if envelope := asEnvelope(err); envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
			zap.String("trace_id", envelope.TraceID))
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok {
			err = original
		}
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr reports to stderr and exits. Used before the loggers
// exist and by main when a command returns an error.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		}
		os.Exit(int(exitCode))
	}
	writeFatal(info.Code, info.Name, info.Description, msg, err)
	os.Exit(info.Code)
}

func writeFatal(code int, name, description, msg string, err error) {
	fmt.Fprintln(os.Stderr, fatalLine(msg, err))
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", code, name, description)
}

// fatalLine renders the first stderr line, expanding error envelopes with
// their code and correlation ids.
func fatalLine(msg string, err error) string {
	if err == nil {
		return "FATAL: " + msg
	}
	envelope := asEnvelope(err)
	if envelope == nil {
		return fmt.Sprintf("FATAL: %s: %v", msg, err)
	}
	line := fmt.Sprintf("FATAL: %s [%s]: %s (correlation: %s, trace: %s)",
		msg, envelope.Code, envelope.Message, envelope.CorrelationID, envelope.TraceID)
	if original, ok := envelope.Original.(error); ok {
		line += "\nUnderlying error: " + original.Error()
	}
	return line
}

func asEnvelope(err error) *errors.ErrorEnvelope {
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) {
		return envelope
	}
	return nil
}
