// Package runlog implements the pipeline run logger on stderr.
package runlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Logger writes structured run records to a writer, stderr by default.
type Logger struct {
	out io.Writer
}

// New creates a stderr logger.
func New() *Logger {
	return &Logger{out: os.Stderr}
}

// NewWithWriter creates a logger with a custom sink.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{out: w}
}

func (l *Logger) stamp() string {
	return time.Now().UTC().Format("15:04:05")
}

// LogAttempt records one executor attempt.
func (l *Logger) LogAttempt(ctx context.Context, agent string, attempt int, errorClass string, backoffMs int64) {
	if errorClass == "" {
		fmt.Fprintf(l.out, "%s %s agent=%s attempt=%d\n",
			l.stamp(), color.New(color.FgGreen).Sprint("attempt"), agent, attempt)
		return
	}
	fmt.Fprintf(l.out, "%s %s agent=%s attempt=%d error_class=%s backoff_ms=%d\n",
		l.stamp(), color.New(color.FgYellow).Sprint("retry"), agent, attempt, errorClass, backoffMs)
}

// LogStage records a stage lifecycle message.
func (l *Logger) LogStage(ctx context.Context, specID, stage, message string) {
	fmt.Fprintf(l.out, "%s %s spec=%s stage=%s %s\n",
		l.stamp(), color.New(color.FgCyan).Sprint("stage"), specID, stage, message)
}

// LogWarn records a non-fatal condition.
func (l *Logger) LogWarn(ctx context.Context, message string) {
	fmt.Fprintf(l.out, "%s %s %s\n",
		l.stamp(), color.New(color.FgYellow).Sprint("warn"), message)
}
