package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracktag-proxy/work/buffer"
	"tracktag-proxy/work/cache"
	"tracktag-proxy/work/client"
	"tracktag-proxy/work/config"
	"tracktag-proxy/work/handlers"
	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/proxy"
	"tracktag-proxy/work/registry"
)

var (
	Version = "v0.1.0" // default version
)

// our main app worker
func main() {

	// load our config
	cfg := config.LoadConfig()
	logger.SetLogLevel(cfg.LogLevel)

	// Initialize HTTP client
	httpClient := client.NewHeaderSettingClient(cfg)

	// Initialize worker pool
	workerPool, err := ants.NewPool(cfg.WorkerThreads, ants.WithPreAlloc(true))
	if err != nil {
		log.Fatalf("Failed to create worker pool: %v", err)
	}
	defer workerPool.Release()

	// Initialize buffer pool and rewrite cache
	bufferPool := buffer.NewPool()
	rewriteCache := cache.NewRewriteCache(cfg.CacheEnabled, cfg.CacheDuration)
	defer rewriteCache.Close()

	// Track session registry
	reg := registry.New()

	// Create proxy instance
	srv := proxy.New(cfg, reg, httpClient, workerPool, bufferPool, rewriteCache)

	// Setup HTTP routes
	router := mux.NewRouter()
	router.HandleFunc("/hls", handlers.HandleHLS(srv)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	setupStatusRoutes(router, srv)
	router.NotFoundHandler = handlers.HandleNotFound()
	router.MethodNotAllowedHandler = handlers.HandleMethodNotAllowed()

	port, err := srv.Start(router)
	if err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	// show info
	logger.Info("Starting TrackTag Proxy %s", Version)
	logger.Info("Server configuration:")
	logger.Info("  - Listen Address: %s:%d", cfg.ListenAddress, port)
	logger.Info("  - Worker Threads: %d", cfg.WorkerThreads)
	logger.Info("  - Upstream Timeout: %s", cfg.UpstreamTimeout)
	logger.Info("  - Origin Rate Limit: %d req/sec per host", cfg.OriginRatePerSec)
	logger.Info("  - Cache Enabled: %v", cfg.CacheEnabled)
	logger.Info("  - Cache Duration: %s", cfg.CacheDuration)
	logger.Info("  - Log Level: %s", cfg.LogLevel)
	logger.Info("  - URL Obfuscation: %v", cfg.ObfuscateUrls)

	// block until asked to shut down
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Received %s, shutting down", sig)
	srv.Stop()
}
