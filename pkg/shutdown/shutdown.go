// Package shutdown handles fatal-exit diagnostics and signal wiring. On a
// startup fatal it writes a crash dump (environ + goroutine stacks) under
// the data directory so operators can diagnose crash loops in containers
// where stderr is gone by the time anyone looks.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"parrotdb/pkg/logger"
)

// Abort logs a fatal startup error, writes a crash dump under dbPath and
// exits with status 2.
func Abort(contextMsg string, err error, dbPath string) {
	logger.Error("startup fatal", zap.String("context", contextMsg), zap.Error(err))
	dumpPath, derr := writeCrashDump(dbPath, contextMsg, err)
	if derr != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", derr)
	} else {
		logger.Error("crash dump written", zap.String("path", dumpPath))
		fmt.Fprintf(os.Stderr, "crash dump written: %s\n", dumpPath)
	}
	logger.Sync()
	os.Exit(2)
}

// writeCrashDump writes a human-readable dump with the failure reason,
// environment and all goroutine stacks. Written via temp file + rename so
// a partially-written dump is never observed.
func writeCrashDump(dbPath, reason string, err error) (string, error) {
	crashDir := "./crash"
	if dbPath != "" {
		crashDir = filepath.Join(dbPath, "crash")
	}
	if e := os.MkdirAll(crashDir, 0o700); e != nil {
		return "", fmt.Errorf("failed to create crash dir: %w", e)
	}

	ts := time.Now().UnixNano()
	dumpPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.log", ts))

	f, ferr := os.CreateTemp(crashDir, ".crash-*.tmp")
	if ferr != nil {
		return "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- environ ---\n")
	for _, e := range os.Environ() {
		fmt.Fprintln(f, e)
	}
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	_, _ = f.Write(buf[:n])
	_ = f.Sync()
	_ = f.Close()

	if err := os.Rename(tmpName, dumpPath); err != nil {
		return "", fmt.Errorf("failed to move crash dump into place: %w", err)
	}
	_ = os.Chmod(dumpPath, 0o600)
	return dumpPath, nil
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. It
// also watches SIGPIPE and dumps goroutine stacks before cancelling, to aid
// diagnostics when a proxy tears the connection down.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("shutdown requested", zap.String("signal", s.String()))
		cancel()
	}()

	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		s := <-sigpipe
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		logger.Warn("SIGPIPE received",
			zap.String("signal", s.String()),
			zap.String("stacks", string(buf[:n])))
		cancel()
	}()

	return ctx, cancel
}
