package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunEmptyStore(t *testing.T) {
	t.Setenv("REEFCORE_STORAGE_DRIVER", "memory")
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "[]" {
		t.Fatalf("expected empty report list, got %q", got)
	}
}

func TestRunPrettyOutput(t *testing.T) {
	t.Setenv("REEFCORE_STORAGE_DRIVER", "memory")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-pretty", "-workers", "4"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
}

func TestRunUnknownEvent(t *testing.T) {
	t.Setenv("REEFCORE_STORAGE_DRIVER", "memory")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-event", "missing"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure for unknown event, got %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatalf("expected diagnostic on stderr")
	}
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-definitely-not-a-flag"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected usage failure, got %d", code)
	}
}

func TestRunUnknownDriver(t *testing.T) {
	t.Setenv("REEFCORE_STORAGE_DRIVER", "tape")
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected store failure, got %d", code)
	}
}
