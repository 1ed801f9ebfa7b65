package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/host"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/record"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	err := app.Run(append([]string{"shard"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func TestShardCli_ShardLifecycle(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, "init", "--dir", dir, "--max-items", "3", "--value-size", "8")
	if !strings.Contains(out, "namespace: 0x") {
		t.Errorf("unexpected init output: %s", out)
	}
	if _, err := run(t, "init", "--dir", dir); err == nil {
		t.Errorf("initializing a directory twice should fail")
	}

	mustRun(t, "create", "--dir", dir, "--index", "7")
	if out := mustRun(t, "insert", "--dir", dir, "--index", "7", "1=one", "2=two"); !strings.Contains(out, "inserted 2 entries") {
		t.Errorf("unexpected insert output: %s", out)
	}
	if out := mustRun(t, "get", "--dir", dir, "--index", "7", "2", "1"); out != "2: two\n1: one\n" {
		t.Errorf("unexpected get output: %q", out)
	}

	// Two new keys do not fit into the single remaining slot.
	if _, err := run(t, "insert", "--dir", dir, "--index", "7", "1=uno", "3=three", "4=four"); !errors.Is(err, shard.ErrShardFull) {
		t.Errorf("expected ErrShardFull, got %v", err)
	}
	if out := mustRun(t, "list", "--dir", dir, "--index", "7"); out != "1: one\n2: two\n" {
		t.Errorf("rejected batch was partially applied: %q", out)
	}

	if out := mustRun(t, "remove", "--dir", dir, "--index", "7", "1"); !strings.Contains(out, "removed 1 entries") {
		t.Errorf("unexpected remove output: %s", out)
	}
	if _, err := run(t, "get", "--dir", dir, "--index", "7", "1"); !errors.Is(err, shard.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if out := mustRun(t, "resize", "--dir", dir, "--index", "7", "--max-items", "10"); !strings.Contains(out, "items: 1/10") {
		t.Errorf("unexpected resize output: %s", out)
	}
	if out := mustRun(t, "stats", "--dir", dir, "--index", "7"); !strings.Contains(out, "items: 1/10") {
		t.Errorf("unexpected stats output: %s", out)
	}

	mustRun(t, "delete", "--dir", dir, "--index", "7")
	if _, err := run(t, "stats", "--dir", dir, "--index", "7"); !errors.Is(err, host.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestShardCli_ForeignSignersAreRejected(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", "--dir", dir)
	mustRun(t, "create", "--dir", dir, "--index", "0")

	signer := "0x" + strings.Repeat("11", 32)
	if _, err := run(t, "insert", "--dir", dir, "--index", "0", "--signer", signer, "1=one"); !errors.Is(err, host.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestShardCli_InvalidUtf8ValuesAreRejected(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", "--dir", dir)
	mustRun(t, "create", "--dir", dir, "--index", "0")
	mustRun(t, "insert", "--dir", dir, "--index", "0", "1=one")

	if _, err := run(t, "insert", "--dir", dir, "--index", "0", "2=\xff"); !errors.Is(err, record.ErrInvalidElement) {
		t.Errorf("expected ErrInvalidElement, got %v", err)
	}
	if out := mustRun(t, "list", "--dir", dir, "--index", "0"); out != "1: one\n" {
		t.Errorf("unexpected entries: %q", out)
	}
	mustRun(t, "delete", "--dir", dir, "--index", "0")
}

func TestShardCli_InvalidArgumentsAreRejected(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", "--dir", dir)
	mustRun(t, "create", "--dir", dir, "--index", "0")

	tests := map[string][]string{
		"index out of range": {"create", "--dir", dir, "--index", "256"},
		"malformed entry":    {"insert", "--dir", dir, "--index", "0", "1:one"},
		"malformed key":      {"get", "--dir", dir, "--index", "0", "one"},
		"malformed signer":   {"delete", "--dir", dir, "--index", "0", "--signer", "0x1234"},
		"missing directory":  {"stats", "--dir", t.TempDir(), "--index", "0"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestShardCli_EstimateMatchesRecordSizing(t *testing.T) {
	out := mustRun(t, "estimate", "--key-size", "8", "--value-size", "8", "--max-items", "10")
	if !strings.Contains(out, "shard record: 244 bytes") {
		t.Errorf("unexpected estimate: %s", out)
	}
	if !strings.Contains(out, "owned shard record: 276 bytes") {
		t.Errorf("unexpected estimate: %s", out)
	}
}
