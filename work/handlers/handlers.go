package handlers

import (
	"io"
	"net/http"
	"strconv"

	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/metrics"
	"tracktag-proxy/work/proxy"
)

// HandleHLS serves the proxy endpoint that fetches and rewrites origin
// resources. All request semantics live on the Server; this keeps the
// router wiring free of import cycles.
func HandleHLS(srv *proxy.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.ServeHLS(w, r)
	}
}

// HandleNotFound rejects any path the router does not know. Unknown paths
// are a client bug rather than a missing resource here, so the response is
// 400 instead of the default 404.
func HandleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("{handlers - HandleNotFound} rejected path %s", r.URL.Path)
		writePlainError(w, http.StatusBadRequest, "unknown path")
	}
}

// HandleMethodNotAllowed rejects known paths hit with the wrong verb.
func HandleMethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("{handlers - HandleMethodNotAllowed} rejected %s %s", r.Method, r.URL.Path)
		writePlainError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writePlainError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Connection", "close")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg+"\n")
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}
