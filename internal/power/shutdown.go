// Package power schedules a local machine power-off.
package power

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Shutdowner schedules a power-off after delay.
type Shutdowner interface {
	Shutdown(ctx context.Context, delay time.Duration) error
}

// Command returns the shutdown invocation for goos. Windows takes seconds;
// everything else takes whole minutes, rounded up, at least one.
func Command(goos string, delay time.Duration) (string, []string) {
	if delay < 0 {
		delay = 0
	}
	if goos == "windows" {
		secs := int64((delay + time.Second - 1) / time.Second)
		return "shutdown", []string{"/s", "/t", strconv.FormatInt(secs, 10)}
	}
	mins := int64((delay + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return "shutdown", []string{"-h", "+" + strconv.FormatInt(mins, 10)}
}

// Exec runs the platform shutdown command.
type Exec struct {
	GOOS   string
	Logger *slog.Logger
}

func NewExec(logger *slog.Logger) *Exec {
	return &Exec{GOOS: runtime.GOOS, Logger: logger}
}

func (e *Exec) Shutdown(ctx context.Context, delay time.Duration) error {
	name, args := Command(e.GOOS, delay)
	if e.Logger != nil {
		e.Logger.Warn("scheduling system shutdown",
			slog.String("command", name+" "+strings.Join(args, " ")),
			slog.Duration("delay", delay),
		)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// DryRun logs the command instead of running it.
type DryRun struct {
	GOOS   string
	Logger *slog.Logger
}

func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{GOOS: runtime.GOOS, Logger: logger}
}

func (d *DryRun) Shutdown(_ context.Context, delay time.Duration) error {
	name, args := Command(d.GOOS, delay)
	if d.Logger != nil {
		d.Logger.Warn("dry run: system shutdown skipped",
			slog.String("command", name+" "+strings.Join(args, " ")),
			slog.Duration("delay", delay),
		)
	}
	return nil
}
