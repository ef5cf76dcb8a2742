package power

import (
	"context"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		delay    time.Duration
		wantArgs []string
	}{
		{"windows one minute", "windows", 60 * time.Second, []string{"/s", "/t", "60"}},
		{"windows zero", "windows", 0, []string{"/s", "/t", "0"}},
		{"windows rounds up", "windows", 1500 * time.Millisecond, []string{"/s", "/t", "2"}},
		{"linux one minute", "linux", 60 * time.Second, []string{"-h", "+1"}},
		{"linux rounds up", "linux", 90 * time.Second, []string{"-h", "+2"}},
		{"linux minimum", "linux", 0, []string{"-h", "+1"}},
		{"darwin", "darwin", 5 * time.Minute, []string{"-h", "+5"}},
		{"negative delay", "linux", -time.Minute, []string{"-h", "+1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, args := Command(tc.goos, tc.delay)
			if name != "shutdown" {
				t.Fatalf("name = %q, want shutdown", name)
			}
			if !reflect.DeepEqual(args, tc.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tc.wantArgs)
			}
		})
	}
}

func TestDryRunNeverFails(t *testing.T) {
	d := &DryRun{GOOS: "linux", Logger: slog.New(slog.NewTextHandler(nopWriter{}, nil))}
	if err := d.Shutdown(context.Background(), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ Shutdowner = d
	var _ Shutdowner = &Exec{}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
