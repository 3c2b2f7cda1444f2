package collector

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every upstream request when none is configured.
const DefaultTimeout = 4 * time.Second

// newHTTPClient builds a client with a hard timeout and optional proxy.
func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
