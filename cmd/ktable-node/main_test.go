package main

import (
	"testing"

	"log/slog"
)

func TestNewFlagSet_Defaults(t *testing.T) {
	cfg := cliConfig{}
	fs := newFlagSet(&cfg)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.bind != "0.0.0.0:30303" {
		t.Fatalf("bind = %q, want default", cfg.bind)
	}
	if cfg.bucketCapacity != 16 || cfg.idBits != 256 {
		t.Fatalf("bucketCapacity/idBits = %d/%d, want 16/256", cfg.bucketCapacity, cfg.idBits)
	}
}

func TestNewFlagSet_RepeatedBootstrap(t *testing.T) {
	cfg := cliConfig{}
	fs := newFlagSet(&cfg)
	if err := fs.Parse([]string{"-bootstrap", "10.0.0.1:30303", "-bootstrap", "10.0.0.2:30303"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.bootstrap) != 2 {
		t.Fatalf("bootstrap = %v, want 2 entries", cfg.bootstrap)
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := map[int]slog.Level{
		0: slog.LevelError,
		1: slog.LevelError,
		2: slog.LevelWarn,
		3: slog.LevelInfo,
		5: slog.LevelDebug,
	}
	for v, want := range cases {
		if got := verbosityToLevel(v); got != want {
			t.Fatalf("verbosityToLevel(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestResolveSelf_RandomWhenEmpty(t *testing.T) {
	id1, err := resolveSelf("")
	if err != nil {
		t.Fatalf("resolveSelf: %v", err)
	}
	id2, err := resolveSelf("")
	if err != nil {
		t.Fatalf("resolveSelf: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected two random IDs to differ")
	}
}

func TestResolveSelf_InvalidHex(t *testing.T) {
	if _, err := resolveSelf("not-hex"); err == nil {
		t.Fatalf("expected error for invalid hex id")
	}
	if _, err := resolveSelf("aabb"); err == nil {
		t.Fatalf("expected error for short hex id")
	}
}

func TestParseBootstrap_SkipsMalformed(t *testing.T) {
	nodes := parseBootstrap([]string{"10.0.0.1:30303", "not-an-addr", "bad-ip:30303"})
	if len(nodes) != 1 {
		t.Fatalf("parseBootstrap returned %d nodes, want 1", len(nodes))
	}
}

func TestRun_Version(t *testing.T) {
	if code := run([]string{"-version"}); code != 0 {
		t.Fatalf("run(-version) = %d, want 0", code)
	}
}

func TestRun_InvalidBind(t *testing.T) {
	if code := run([]string{"-bind", "not-a-valid-address"}); code != 1 {
		t.Fatalf("run(-bind invalid) = %d, want 1", code)
	}
}
