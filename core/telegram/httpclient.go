package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/sheetsbot/core/telegram/netutil"
)

// HTTPClientOptions tunes the client used for Bot API calls. Zero values select defaults.
type HTTPClientOptions struct {
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	ClientTimeout   time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration
}

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 5 * time.Second
	}
	if o.ClientTimeout <= 0 {
		// Long polling holds the request open for the poll timeout.
		o.ClientTimeout = 30 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	return o
}

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Only transport failures are retried here; API errors are handled by the sender.
func BuildHTTPClient(opts ...HTTPClientOptions) *http.Client {
	var o HTTPClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.withDefaults()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: o.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   o.DialTimeout,
		ResponseHeaderTimeout: o.ResponseTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout: o.ClientTimeout,
		Transport: &retryTransport{
			base:     transport,
			attempts: o.RetryAttempts,
			backoff:  o.RetryBackoff,
		},
	}
}

type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		r := req
		if attempt > 1 {
			// A consumed body can only be replayed through GetBody.
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				r.Body = body
			}
		}

		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == t.attempts || !netutil.ShouldRetry(err) {
			break
		}
		if err := netutil.Wait(req.Context(), netutil.Backoff(t.backoff, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
