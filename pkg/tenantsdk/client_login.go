package tenantsdk

import "context"

// Login exchanges credentials for the user record.
//
// A 2xx reply is returned as-is, including application-level failures that
// the caller must detect from Status.StatusCode. Non-2xx replies are
// returned as *APIError.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.postJSON(ctx, LoginPath, req)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
