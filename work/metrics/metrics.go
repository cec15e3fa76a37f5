package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProxyRequests counts requests handled by the /hls endpoint, labelled by
// response status code.
var ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracktag_proxy_requests_total",
	Help: "Number of proxy requests handled",
}, []string{"code"})

// UpstreamErrors counts failed origin fetches. The "error_type" label
// distinguishes transport failures from bad upstream status codes.
var UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracktag_proxy_upstream_errors_total",
	Help: "Number of failed origin fetches",
}, []string{"error_type"})

// ManifestsRewritten counts manifests that passed through the rewriter,
// labelled by playlist type.
var ManifestsRewritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracktag_proxy_manifests_rewritten_total",
	Help: "Number of manifests rewritten",
}, []string{"playlist_type"})

// RewriteDuration observes how long a manifest rewrite takes.
var RewriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "tracktag_proxy_rewrite_duration_seconds",
	Help:    "Manifest rewrite duration",
	Buckets: prometheus.DefBuckets,
})

// RegisteredTracks reports the size of the currently registered track set.
var RegisteredTracks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "tracktag_proxy_registered_tracks",
	Help: "Number of audio tracks in the active session",
})
