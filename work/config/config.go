package config

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Config holds all application configuration values for the track-renaming
// HLS proxy. It covers the listening socket, upstream fetch behaviour, the
// rewrite memoization cache, and logging.
type Config struct {
	ListenAddress    string        `json:"listenAddress"`    // Interface the proxy binds to; loopback by default since the player is co-located
	Port             int           `json:"port"`             // Listening port; 0 requests an ephemeral port from the OS
	UpstreamTimeout  time.Duration `json:"upstreamTimeout"`  // Per-request timeout for origin fetches
	UserAgent        string        `json:"userAgent"`        // HTTP User-Agent header for origin requests
	ReqOrigin        string        `json:"reqOrigin"`        // Optional Origin header for origin requests
	ReqReferrer      string        `json:"reqReferrer"`      // Optional Referer header for origin requests
	LogLevel         string        `json:"logLevel"`         // DEBUG/INFO/WARN/ERROR
	ObfuscateUrls    bool          `json:"obfuscateUrls"`    // Obfuscate URLs in logs
	CacheEnabled     bool          `json:"cacheEnabled"`     // Enable the rewrite memoization cache
	CacheDuration    time.Duration `json:"cacheDuration"`    // TTL for memoized rewrite results
	WorkerThreads    int           `json:"workerThreads"`    // Size of the worker pool executing origin fetches
	OriginRatePerSec int           `json:"originRatePerSec"` // Per-host outbound request rate limit
}

// ConfigFile mirrors Config for JSON unmarshaling; duration fields are kept
// as strings (e.g. "30s") and parsed during load.
type ConfigFile struct {
	ListenAddress    string `json:"listenAddress"`
	Port             int    `json:"port"`
	UpstreamTimeout  string `json:"upstreamTimeout"`
	UserAgent        string `json:"userAgent"`
	ReqOrigin        string `json:"reqOrigin"`
	ReqReferrer      string `json:"reqReferrer"`
	LogLevel         string `json:"logLevel"`
	ObfuscateUrls    bool   `json:"obfuscateUrls"`
	CacheEnabled     bool   `json:"cacheEnabled"`
	CacheDuration    string `json:"cacheDuration"`
	WorkerThreads    int    `json:"workerThreads"`
	OriginRatePerSec int    `json:"originRatePerSec"`
}

var (
	configCache *Config      // Cached configuration instance (singleton)
	configMutex sync.RWMutex // Protects configCache
)

// defaultConfigPath is used when TRACKTAG_CONFIG is not set.
const defaultConfigPath = "/settings/config.json"

// LoadConfig loads the configuration from file or returns the cached instance.
// Uses double-checked locking so concurrent callers never reload redundantly,
// and falls back to safe defaults when the file is missing or invalid.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if configCache != nil {
		return configCache
	}

	configPath := os.Getenv("TRACKTAG_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := loadFromFile(configPath)
	if err != nil {
		log.Printf("Failed to load config from %s: %v", configPath, err)
		log.Printf("Falling back to default configuration...")
		config = getDefaultConfig()
	}

	validateAndSetDefaults(config)
	configCache = config
	return config
}

// ClearConfigCache drops the cached configuration so the next LoadConfig call
// re-reads the file. Used on graceful restart and by tests.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

// loadFromFile reads and parses the configuration from a JSON file,
// converting string durations into time.Duration values.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:    file.ListenAddress,
		Port:             file.Port,
		UserAgent:        file.UserAgent,
		ReqOrigin:        file.ReqOrigin,
		ReqReferrer:      file.ReqReferrer,
		LogLevel:         file.LogLevel,
		ObfuscateUrls:    file.ObfuscateUrls,
		CacheEnabled:     file.CacheEnabled,
		WorkerThreads:    file.WorkerThreads,
		OriginRatePerSec: file.OriginRatePerSec,
	}

	cfg.UpstreamTimeout = parseDuration(file.UpstreamTimeout, 30*time.Second)
	cfg.CacheDuration = parseDuration(file.CacheDuration, 5*time.Second)

	return cfg, nil
}

// parseDuration converts a duration string into a time.Duration, returning
// the fallback for empty or malformed values.
func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration %q, using %s", value, fallback)
		return fallback
	}
	return d
}

// getDefaultConfig returns the built-in configuration used when no config
// file is available. The defaults favour the co-located single-player setup:
// loopback listener, ephemeral port, generous upstream timeout.
func getDefaultConfig() *Config {
	return &Config{
		ListenAddress:    "127.0.0.1",
		Port:             0,
		UpstreamTimeout:  30 * time.Second,
		UserAgent:        "tracktag-proxy/1.0",
		LogLevel:         "INFO",
		CacheEnabled:     true,
		CacheDuration:    5 * time.Second,
		WorkerThreads:    16,
		OriginRatePerSec: 20,
	}
}

// validateAndSetDefaults fills in any zero values with safe defaults so the
// rest of the application never has to guard against missing settings.
func validateAndSetDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "127.0.0.1"
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		log.Printf("Invalid port %d, using an ephemeral port", cfg.Port)
		cfg.Port = 0
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tracktag-proxy/1.0"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 5 * time.Second
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = 16
	}
	if cfg.OriginRatePerSec <= 0 {
		cfg.OriginRatePerSec = 20
	}
}
