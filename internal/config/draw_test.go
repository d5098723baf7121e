package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStaticDrawConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		cfg  DrawConfig
	}{
		{name: "zero wait", cfg: DrawConfig{LockLease: time.Second, MaxDrawCount: 1}},
		{name: "zero lease", cfg: DrawConfig{LockWait: time.Second, MaxDrawCount: 1}},
		{name: "zero max", cfg: DrawConfig{LockWait: time.Second, LockLease: time.Second}},
		{name: "bad zone", cfg: DrawConfig{LockWait: time.Second, LockLease: time.Second, MaxDrawCount: 1, Timezone: "Mars/Olympus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStaticDrawConfig(tc.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewStaticDrawConfigFillsDefaults(t *testing.T) {
	holder, err := NewStaticDrawConfig(DrawConfig{LockWait: time.Second, LockLease: time.Second, MaxDrawCount: 3})
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	got := holder.Get()
	if got.NoPrizeName != DefaultNoPrizeName {
		t.Fatalf("expected default no-prize name, got %q", got.NoPrizeName)
	}
	if got.Location().String() != DefaultTimezone {
		t.Fatalf("expected %s, got %s", DefaultTimezone, got.Location())
	}
}

func TestNewDrawConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draw.yml")
	content := "draw:\n  lock_wait: 2s\n  lock_lease: 5s\n  timezone: UTC\n  max_draw_count: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Config{DrawConfigPath: path, Draw: DefaultDrawConfig()}
	holder, err := NewDrawConfigHolder(cfg)
	if err != nil {
		t.Fatalf("load holder: %v", err)
	}
	got := holder.Get()
	if got.LockWait != 2*time.Second || got.LockLease != 5*time.Second {
		t.Fatalf("unexpected durations: wait=%s lease=%s", got.LockWait, got.LockLease)
	}
	if got.MaxDrawCount != 7 {
		t.Fatalf("expected max draw count 7, got %d", got.MaxDrawCount)
	}
	if got.NoPrizeName != DefaultNoPrizeName {
		t.Fatalf("expected default no-prize name, got %q", got.NoPrizeName)
	}
}

func TestNewDrawConfigHolderFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewDrawConfigHolder(Config{Draw: DefaultDrawConfig()})
	if err != nil {
		t.Fatalf("load holder: %v", err)
	}
	if got := holder.Get().LockWait; got != DefaultLockWait {
		t.Fatalf("expected default wait, got %s", got)
	}
}

func TestReloadKeepsStartupTimezone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draw.yml")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("draw:\n  lock_wait: 2s\n  lock_lease: 5s\n  timezone: UTC\n  max_draw_count: 7\n")

	holder, err := NewDrawConfigHolder(Config{DrawConfigPath: path, Draw: DefaultDrawConfig()})
	if err != nil {
		t.Fatalf("load holder: %v", err)
	}

	write("draw:\n  lock_wait: 3s\n  lock_lease: 5s\n  timezone: Asia/Tokyo\n  max_draw_count: 9\n")

	deadline := time.Now().Add(5 * time.Second)
	for holder.Get().MaxDrawCount != 9 {
		if time.Now().After(deadline) {
			t.Fatalf("config was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	got := holder.Get()
	if got.LockWait != 3*time.Second {
		t.Fatalf("expected reloaded wait, got %s", got.LockWait)
	}
	if got.Timezone != "UTC" || got.Location().String() != "UTC" {
		t.Fatalf("expected startup zone UTC, got %s", got.Location())
	}
}

func TestKeepTimezoneCarriesRunningZone(t *testing.T) {
	running, err := NewStaticDrawConfig(DefaultDrawConfig())
	if err != nil {
		t.Fatalf("running config: %v", err)
	}
	updatedCfg := DefaultDrawConfig()
	updatedCfg.Timezone = "UTC"
	updatedCfg.MaxDrawCount = 5
	updated, err := normalizeDrawConfig(updatedCfg)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	got := keepTimezone(running.Get(), updated)
	if got.Location().String() != DefaultTimezone {
		t.Fatalf("expected %s, got %s", DefaultTimezone, got.Location())
	}
	if got.MaxDrawCount != 5 {
		t.Fatalf("expected other fields to reload, got %d", got.MaxDrawCount)
	}
}
