package tenantsdk

import (
	"net/http"
	"strings"
	"time"
)

// LoginPath is the backend route for credential exchange.
const LoginPath = "/user/login"

// Client talks to the tenant management backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
