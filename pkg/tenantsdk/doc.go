/*
Package tenantsdk is a small client for the tenant management REST backend.

Only the calls the console session core needs are implemented. Today that is
the login exchange:

	client := tenantsdk.NewClient("https://tenants.example.com/api")

	resp, err := client.Login(ctx, tenantsdk.LoginRequest{
		UserEmail: "admin@example.com",
		Password:  "secret1",
	})

# Response envelope

Every backend response shares one envelope:

	{
	  "id": null,
	  "status": {"statusCode": 112, "statusMessage": "Login successful"},
	  "errors": null,
	  "data": {...}
	}

A 2xx reply is decoded into the endpoint's response type whatever its
statusCode says. Interpreting statusCode is the caller's business because the
backend uses application codes (112 means an authenticated login) rather than
HTTP statuses.

# Errors

Non-2xx replies come back as *APIError carrying the HTTP status and any
message the server supplied:

	resp, err := client.Login(ctx, req)
	var apiErr *tenantsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// bad credentials
	}

Network failures and undecodable bodies are returned as wrapped errors.

# Transport

HTTPClient is exported so callers can install their own RoundTripper chain,
for example to attach identity headers or log requests.
*/
package tenantsdk
