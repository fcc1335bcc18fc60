package client

import (
	"net/http"
	"time"
)

// DefaultTimeout is applied to every request unless overridden at
// construction
const DefaultTimeout = 300000 * time.Millisecond

// Observer receives the outcome of every call
type Observer interface {
	Observe(operation, outcome string, duration time.Duration)
}

// Option configures a DashboardClient
type Option func(*DashboardClient)

// WithTimeout sets the fixed timeout shared by all requests
func WithTimeout(timeout time.Duration) Option {
	return func(c *DashboardClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient uses a copy of httpClient for requests. The copy's
// Timeout is set to the client timeout; httpClient itself is not modified.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *DashboardClient) {
		if httpClient != nil {
			hc := *httpClient
			c.httpClient = &hc
		}
	}
}

// WithBearerToken sends token in the Authorization header of every request
func WithBearerToken(token string) Option {
	return func(c *DashboardClient) {
		c.token = token
	}
}

// WithMetrics reports call outcomes to observer
func WithMetrics(observer Observer) Option {
	return func(c *DashboardClient) {
		c.observer = observer
	}
}
