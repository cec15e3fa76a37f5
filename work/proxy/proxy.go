package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/ratelimit"

	"tracktag-proxy/work/buffer"
	"tracktag-proxy/work/cache"
	"tracktag-proxy/work/client"
	"tracktag-proxy/work/config"
	"tracktag-proxy/work/logger"
	"tracktag-proxy/work/metrics"
	"tracktag-proxy/work/registry"
	"tracktag-proxy/work/types"
)

// Server is the local manifest-rewriting proxy. It owns the listening socket,
// hands out proxied URLs that wrap origin manifest URLs, and serves the /hls
// endpoint that fetches, rewrites and returns origin resources. All shared
// mutable state lives in the track Registry; connections are otherwise
// independent.
type Server struct {
	Config       *config.Config
	Registry     *registry.Registry
	HttpClient   *client.HeaderSettingClient
	WorkerPool   *ants.Pool
	BufferPool   *buffer.Pool
	RewriteCache *cache.RewriteCache

	hostLimiters     map[string]ratelimit.Limiter
	hostLimiterMutex sync.Mutex

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	startedAt  time.Time

	requestsTotal  atomic.Uint64
	rewritesTotal  atomic.Uint64
	upstreamErrors atomic.Uint64
}

// New wires a Server from its dependencies. The server does not listen until
// Start is called.
func New(cfg *config.Config, reg *registry.Registry, httpClient *client.HeaderSettingClient, workerPool *ants.Pool, bufferPool *buffer.Pool, rewriteCache *cache.RewriteCache) *Server {
	return &Server{
		Config:       cfg,
		Registry:     reg,
		HttpClient:   httpClient,
		WorkerPool:   workerPool,
		BufferPool:   bufferPool,
		RewriteCache: rewriteCache,
		hostLimiters: make(map[string]ratelimit.Limiter),
	}
}

// Start binds the listening socket and begins serving the given handler,
// returning the bound port. Port 0 in the configuration requests an
// ephemeral port. Starting an already-started server is an error.
func (s *Server) Start(handler http.Handler) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return 0, fmt.Errorf("proxy server already started")
	}

	addr := net.JoinHostPort(s.Config.ListenAddress, strconv.Itoa(s.Config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startedAt = time.Now()

	srv := s.httpServer
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("{proxy - Start} serve loop ended: %v", err)
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	logger.Info("{proxy - Start} listening on %s:%d", s.Config.ListenAddress, port)
	return port, nil
}

// Stop closes the listener and drops in-progress connections. In-flight
// origin fetches are abandoned; their responses are discarded.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Close(); err != nil {
			logger.Warn("{proxy - Stop} close: %v", err)
		}
		s.httpServer = nil
	}
	s.listener = nil
	logger.Info("{proxy - Stop} proxy server stopped")
}

// Port returns the bound port, or 0 when the server is not listening.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Listening reports whether the server currently accepts connections.
func (s *Server) Listening() bool {
	return s.Port() != 0
}

// ProxiedURL registers the given tracks as the current playback session and
// returns the proxied form of the origin manifest URL. It returns ok=false
// when the server is not listening or the origin URL is not an absolute
// HTTP(S) URL; the caller then falls back to handing the player the original
// URL, losing enrichment but not playback.
func (s *Server) ProxiedURL(origin string, tracks []types.AudioTrack) (string, bool) {
	port := s.Port()
	if port == 0 {
		logger.Warn("{proxy - ProxiedURL} server not listening, cannot proxy %s", origin)
		return "", false
	}

	u, err := url.Parse(origin)
	if err != nil || !u.IsAbs() || u.Host == "" {
		logger.Warn("{proxy - ProxiedURL} refusing non-absolute origin URL %q", origin)
		return "", false
	}

	session := s.Registry.Register(tracks)
	metrics.RegisteredTracks.Set(float64(len(tracks)))

	return s.buildProxyURL(port, origin, session.ID), true
}

// buildProxyURL produces the canonical proxied URL shape. The url parameter
// always decodes back to exactly the origin URL; sid round-trips the session
// so late sub-playlist fetches resolve the track set they were issued under.
func (s *Server) buildProxyURL(port int, origin, sessionID string) string {
	proxied := fmt.Sprintf("http://%s/hls?url=%s",
		net.JoinHostPort(s.Config.ListenAddress, strconv.Itoa(port)),
		url.QueryEscape(origin))
	if sessionID != "" {
		proxied += "&sid=" + url.QueryEscape(sessionID)
	}
	return proxied
}

// fetchOrigin performs the cache-bypassing GET against the decoded origin
// URL. Fetches run on the bounded worker pool and are rate limited per
// origin host; the proxy itself never retries, a transport failure surfaces
// as a 502 and the retry decision stays with the player.
func (s *Server) fetchOrigin(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	if u, err := url.Parse(rawURL); err == nil {
		s.limiterForHost(u.Host).Take()
	}

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)

	submitErr := s.WorkerPool.Submit(func() {
		resp, err := s.HttpClient.Do(req)
		done <- result{resp: resp, err: err}
	})
	if submitErr != nil {
		// pool unavailable, run the fetch on the connection goroutine
		logger.Warn("{proxy - fetchOrigin} worker pool submit failed, fetching inline: %v", submitErr)
		return s.HttpClient.Do(req)
	}

	res := <-done
	return res.resp, res.err
}

// limiterForHost returns the rate limiter for one origin host, creating it
// on first use.
func (s *Server) limiterForHost(host string) ratelimit.Limiter {
	s.hostLimiterMutex.Lock()
	defer s.hostLimiterMutex.Unlock()

	limiter, ok := s.hostLimiters[host]
	if !ok {
		limiter = ratelimit.New(s.Config.OriginRatePerSec)
		s.hostLimiters[host] = limiter
		logger.Debug("{proxy - limiterForHost} created rate limiter for host %s: %d req/sec", host, s.Config.OriginRatePerSec)
	}
	return limiter
}

// Stats is the snapshot served by the status endpoint.
type Stats struct {
	Uptime         time.Duration
	Listening      bool
	Port           int
	RequestsTotal  uint64
	RewritesTotal  uint64
	UpstreamErrors uint64
	SessionTracks  int
}

// Snapshot returns current operational counters.
func (s *Server) Snapshot() Stats {
	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	var uptime time.Duration
	if !startedAt.IsZero() {
		uptime = time.Since(startedAt)
	}

	return Stats{
		Uptime:         uptime,
		Listening:      s.Listening(),
		Port:           s.Port(),
		RequestsTotal:  s.requestsTotal.Load(),
		RewritesTotal:  s.rewritesTotal.Load(),
		UpstreamErrors: s.upstreamErrors.Load(),
		SessionTracks:  len(s.Registry.Current()),
	}
}
