package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/postbot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	keepAliveInterval = 30 * time.Second
	retryAttempts     = 3
	retryBackoff      = 2 * time.Second
)

// NewHTTPClient returns the client used for Bot API calls. The response
// timeout must exceed the long-poll timeout or getUpdates would always fail.
func NewHTTPClient(pollTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   pollTimeout + 20*time.Second,
		Transport: &retryTransport{base: transport, maxRetries: retryAttempts, backoff: retryBackoff},
	}
}

// retryTransport replays requests that failed with a transient network error.
// Requests whose body cannot be rewound are not replayed.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries; attempt++ {
		if !netutil.ShouldRetry(err) || (req.Body != nil && req.GetBody == nil) {
			return nil, err
		}
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
