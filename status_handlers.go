package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/middleware"
	"tracktag-proxy/work/proxy"
	"tracktag-proxy/work/utils"
)

// StatusResponse is the operational snapshot served by the status endpoint,
// covering uptime, resource usage and proxy activity counters for quick
// health checks without scraping the Prometheus endpoint.
type StatusResponse struct {
	Uptime           string `json:"uptime"`
	Listening        bool   `json:"listening"`
	Port             int    `json:"port"`
	LogLevel         string `json:"logLevel"`
	MemoryUsage      string `json:"memoryUsage"`
	WorkerThreads    int    `json:"workerThreads"`
	CacheStatus      string `json:"cacheStatus"`
	RequestsHandled  uint64 `json:"requestsHandled"`
	ManifestRewrites uint64 `json:"manifestRewrites"`
	UpstreamErrors   uint64 `json:"upstreamErrors"`
	SessionTracks    int    `json:"sessionTracks"`
	SessionID        string `json:"sessionId"`
}

// setupStatusRoutes registers the read-only status endpoint and the session
// reset endpoint on the router.
func setupStatusRoutes(router *mux.Router, srv *proxy.Server) {
	router.HandleFunc("/status", corsMiddleware(middleware.GzipMiddleware(handleGetStatus(srv)))).Methods("GET", "OPTIONS")
	router.HandleFunc("/session", corsMiddleware(handleClearSession(srv))).Methods("DELETE", "OPTIONS")
}

// corsMiddleware answers preflight requests and stamps permissive CORS
// headers so local tooling can poll the status endpoint from a browser.
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func handleGetStatus(srv *proxy.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		snap := srv.Snapshot()

		cacheStatus := "Disabled"
		if srv.Config.CacheEnabled {
			cacheStatus = "Enabled"
		}

		status := StatusResponse{
			Uptime:           formatDuration(snap.Uptime),
			Listening:        snap.Listening,
			Port:             snap.Port,
			LogLevel:         logger.GetLogLevel(),
			MemoryUsage:      utils.FormatBytes(m.Alloc),
			WorkerThreads:    srv.Config.WorkerThreads,
			CacheStatus:      cacheStatus,
			RequestsHandled:  snap.RequestsTotal,
			ManifestRewrites: snap.RewritesTotal,
			UpstreamErrors:   snap.UpstreamErrors,
			SessionTracks:    snap.SessionTracks,
			SessionID:        srv.Registry.CurrentID(),
		}

		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error("{main - handleGetStatus} encode failed: %v", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	}
}

// handleClearSession drops all registered track sessions. Proxied URLs
// already handed out keep working but lose enrichment, the same behavior as
// fetching a manifest with no session registered.
func handleClearSession(srv *proxy.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.Registry.Clear()
		logger.Info("{main - handleClearSession} track sessions cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
