package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	contents := `{
		"listenAddress": "127.0.0.1",
		"port": 18080,
		"upstreamTimeout": "10s",
		"userAgent": "test-agent",
		"logLevel": "DEBUG",
		"cacheEnabled": true,
		"cacheDuration": "2s",
		"workerThreads": 8,
		"originRatePerSec": 50
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRACKTAG_CONFIG", path)
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()
	if cfg.Port != 18080 {
		t.Errorf("Port = %d, want 18080", cfg.Port)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %s, want 10s", cfg.UpstreamTimeout)
	}
	if cfg.CacheDuration != 2*time.Second {
		t.Errorf("CacheDuration = %s, want 2s", cfg.CacheDuration)
	}
	if cfg.UserAgent != "test-agent" || cfg.LogLevel != "DEBUG" {
		t.Errorf("unexpected strings: %q / %q", cfg.UserAgent, cfg.LogLevel)
	}
	if cfg.WorkerThreads != 8 || cfg.OriginRatePerSec != 50 {
		t.Errorf("unexpected pool settings: %d / %d", cfg.WorkerThreads, cfg.OriginRatePerSec)
	}

	// second call returns the cached instance
	if LoadConfig() != cfg {
		t.Error("LoadConfig did not cache")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TRACKTAG_CONFIG", filepath.Join(t.TempDir(), "absent.json"))
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()
	if cfg.ListenAddress != "127.0.0.1" {
		t.Errorf("ListenAddress = %q, want loopback default", cfg.ListenAddress)
	}
	if cfg.Port != 0 {
		t.Errorf("Port = %d, want ephemeral default", cfg.Port)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("UpstreamTimeout = %s, want 30s default", cfg.UpstreamTimeout)
	}
	if cfg.WorkerThreads != 16 || cfg.OriginRatePerSec != 20 {
		t.Errorf("pool defaults = %d / %d", cfg.WorkerThreads, cfg.OriginRatePerSec)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{Port: 99999, LogLevel: "DEBUG"}
	validateAndSetDefaults(cfg)

	if cfg.Port != 0 {
		t.Errorf("out-of-range port = %d, want reset to 0", cfg.Port)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("explicit LogLevel overwritten: %q", cfg.LogLevel)
	}
	if cfg.UserAgent == "" || cfg.UpstreamTimeout <= 0 || cfg.CacheDuration <= 0 {
		t.Errorf("defaults not filled: %+v", cfg)
	}
}

func TestParseDuration(t *testing.T) {
	if d := parseDuration("", time.Minute); d != time.Minute {
		t.Errorf("empty duration = %s, want fallback", d)
	}
	if d := parseDuration("nonsense", time.Minute); d != time.Minute {
		t.Errorf("malformed duration = %s, want fallback", d)
	}
	if d := parseDuration("1h30m", time.Minute); d != 90*time.Minute {
		t.Errorf("parseDuration = %s, want 1h30m", d)
	}
}
