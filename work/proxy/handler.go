package proxy

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/metrics"
	"tracktag-proxy/work/parser"
	"tracktag-proxy/work/rewrite"
	"tracktag-proxy/work/utils"
)

const defaultManifestContentType = "application/vnd.apple.mpegurl"

// ServeHLS handles one GET /hls request: decode the wrapped origin URL,
// fetch it upstream, rewrite the body when it is an HLS playlist, and relay
// everything else byte-for-byte.
func (s *Server) ServeHLS(w http.ResponseWriter, r *http.Request) {
	s.requestsTotal.Add(1)

	// Query().Get percent-decodes, so this is already the exact origin URL
	originURL := r.URL.Query().Get("url")
	if originURL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	sessionID := r.URL.Query().Get("sid")
	logger.Debug("{proxy - ServeHLS} fetching %s (sid=%s)", utils.LogURL(s.Config, originURL), sessionID)

	ctx, cancel := context.WithTimeout(r.Context(), s.Config.UpstreamTimeout)
	defer cancel()

	resp, err := s.fetchOrigin(ctx, originURL)
	if err != nil {
		s.upstreamErrors.Add(1)
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		logger.Error("{proxy - ServeHLS} upstream fetch failed for %s: %v", utils.LogURL(s.Config, originURL), err)
		s.writeError(w, http.StatusBadGateway, "upstream fetch failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.upstreamErrors.Add(1)
		metrics.UpstreamErrors.WithLabelValues("status").Inc()
		logger.Warn("{proxy - ServeHLS} upstream returned %d for %s", resp.StatusCode, utils.LogURL(s.Config, originURL))
		s.writeError(w, http.StatusBadGateway, "upstream returned "+strconv.Itoa(resp.StatusCode))
		return
	}

	buf := s.BufferPool.Get()
	defer s.BufferPool.Put(buf)

	if _, err := io.Copy(buf, resp.Body); err != nil {
		s.upstreamErrors.Add(1)
		metrics.UpstreamErrors.WithLabelValues("body").Inc()
		logger.Error("{proxy - ServeHLS} reading upstream body for %s: %v", utils.LogURL(s.Config, originURL), err)
		s.writeError(w, http.StatusBadGateway, "upstream body read failed")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	body := buf.Bytes()

	if isManifestResponse(contentType, originURL) {
		rewritten := s.rewriteManifest(string(body), originURL, sessionID)
		s.writeSuccess(w, []byte(rewritten), manifestContentType(contentType))
		metrics.ProxyRequests.WithLabelValues("200").Inc()
		return
	}

	s.writeSuccess(w, body, contentType)
	metrics.ProxyRequests.WithLabelValues("200").Inc()
}

// rewriteManifest runs the rewriting pipeline over one playlist body,
// memoizing on the exact body bytes so repeated player refetches of an
// unchanged manifest skip the parse. The cache key folds in the registry
// generation, so registering a new session invalidates every memoized
// rewrite at once.
func (s *Server) rewriteManifest(content, originURL, sessionID string) string {
	key := s.RewriteCache.Key(content, originURL, sessionID, s.Registry.Generation())
	if cached, ok := s.RewriteCache.Get(key); ok {
		logger.Debug("{proxy - rewriteManifest} memoized rewrite for %s", utils.LogURL(s.Config, originURL))
		return cached
	}

	tracks := s.Registry.Lookup(sessionID)
	port := s.Port()

	start := time.Now()
	rewritten := rewrite.Rewrite(content, originURL, tracks, func(abs string) string {
		return s.buildProxyURL(port, abs, sessionID)
	})
	metrics.RewriteDuration.Observe(time.Since(start).Seconds())
	metrics.ManifestsRewritten.WithLabelValues(playlistTypeLabel(content)).Inc()
	s.rewritesTotal.Add(1)

	s.RewriteCache.Set(key, rewritten)
	return rewritten
}

// isManifestResponse decides whether the upstream response is an HLS
// playlist: either the content type says so or the origin path carries the
// .m3u8 extension. Everything else passes through untouched.
func isManifestResponse(contentType, originURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "mpegurl") {
		return true
	}
	if u, err := url.Parse(originURL); err == nil {
		return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
	}
	return false
}

// manifestContentType mirrors the upstream content type when present and
// supplies the canonical HLS type otherwise.
func manifestContentType(upstream string) string {
	if upstream != "" {
		return upstream
	}
	return defaultManifestContentType
}

func playlistTypeLabel(content string) string {
	switch parser.Classify(content) {
	case parser.Master:
		return "master"
	case parser.Media:
		return "media"
	default:
		return "unknown"
	}
}

// writeSuccess sends a 200 with the exact body bytes, a recomputed
// Content-Length and permissive CORS headers. Connection close keeps the
// local socket accounting simple; players reconnect per fetch anyway.
func (s *Server) writeSuccess(w http.ResponseWriter, body []byte, contentType string) {
	h := w.Header()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	setCORSHeaders(h)
	h.Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Debug("{proxy - writeSuccess} client went away: %v", err)
	}
}

// writeError sends a non-empty plain-text error body so players surface
// something other than a silent stall.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	setCORSHeaders(h)
	h.Set("Connection", "close")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg+"\n")
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
}
