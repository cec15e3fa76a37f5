package client

import (
	"net/http"
	"time"

	"tracktag-proxy/work/config"
)

// HeaderSettingClient wraps http.Client to automatically set request headers
// on every origin fetch: the configured User-Agent, optional Origin/Referer
// values, and cache-bypassing directives. Playlists must reflect the live
// state of the stream, so intermediary caches are always told to revalidate.
type HeaderSettingClient struct {
	Client *http.Client
	config *config.Config
}

// NewHeaderSettingClient builds the upstream HTTP client. The overall request
// timeout comes from configuration; keep-alives stay enabled since a playback
// session fetches the same origin repeatedly.
func NewHeaderSettingClient(config *config.Config) *HeaderSettingClient {
	client := &http.Client{
		Timeout: config.UpstreamTimeout,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			DisableKeepAlives:     false,
			ResponseHeaderTimeout: config.UpstreamTimeout,
		},
	}

	return &HeaderSettingClient{
		Client: client,
		config: config,
	}
}

// Do sets the standard headers and executes the request.
func (hsc *HeaderSettingClient) Do(req *http.Request) (*http.Response, error) {
	hsc.setHeaders(req)
	return hsc.Client.Do(req)
}

func (hsc *HeaderSettingClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", hsc.config.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	if hsc.config.ReqOrigin != "" {
		req.Header.Set("Origin", hsc.config.ReqOrigin)
	}
	if hsc.config.ReqReferrer != "" {
		req.Header.Set("Referer", hsc.config.ReqReferrer)
	}
}
