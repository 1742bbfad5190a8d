package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-direction=DOWN", "-steps=2", "-dsn= postgres://flag "}, lookupFrom(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.direction != "down" || opts.steps != 2 || opts.dsn != "postgres://flag" {
		t.Fatalf("unexpected options: %+v", opts)
	}

	opts, err = parseOptions(nil, lookupFrom(map[string]string{envPostgresDSN: "postgres://env"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.direction != "up" || opts.dsn != "postgres://env" {
		t.Fatalf("expected defaults with env dsn, got %+v", opts)
	}
}

func TestParseOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing dsn", args: []string{"-direction=status"}, want: envPostgresDSN},
		{name: "bad direction", args: []string{"-direction=sideways", "-dsn=x"}, want: "unsupported direction"},
		{name: "negative steps", args: []string{"-steps=-1", "-dsn=x"}, want: "steps"},
		{name: "unknown flag", args: []string{"-force"}, want: "force"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(tt.args, lookupFrom(nil))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunMigrations(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("URBANFOOD_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("URBANFOOD_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, args := range [][]string{
		{"-direction=status"},
		{"-direction=up"},
		{"-direction=down", "-steps=1"},
		{"-direction=up"},
	} {
		var out bytes.Buffer
		if err := run(ctx, append(args, "-dsn="+dsn), &out, lookupFrom(nil)); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(out.String(), "ok: version=") {
			t.Fatalf("%v: unexpected output %q", args, out.String())
		}
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 42)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
