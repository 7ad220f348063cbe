package canva

import (
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds every outbound call to Canva.
const DefaultHTTPTimeout = 15 * time.Second

type clientOptions struct {
	httpClient *http.Client
}

// Option configures the Canva clients in this package.
type Option func(*clientOptions)

// WithHTTPClient sets the client used for outbound calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTimeout uses a dedicated client with the given timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func newClientOptions(opts []Option) clientOptions {
	o := clientOptions{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
