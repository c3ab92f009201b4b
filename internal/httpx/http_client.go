package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

const userAgent = "lottobot/1.0"

var externalHTTPClient = &http.Client{
	Timeout:   defaultExternalHTTPTimeout,
	Transport: &userAgentTransport{base: http.DefaultTransport},
}

// ConfigureExternalHTTPClient sets the shared client's timeout and returns
// the value applied. Non-positive values restore the default.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// ExternalClient is the client used for every outbound provider call.
func ExternalClient() *http.Client {
	return externalHTTPClient
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}
