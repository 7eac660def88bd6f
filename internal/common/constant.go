// Package common contains shared constants and sentinel errors used across
// camvault components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on API requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token value in the Authorization header.
	BearerPrefix = "Bearer "

	// TokenQueryParam is the query-string fallback for clients that cannot
	// set headers, such as <img> tags pointing at the live frame.
	TokenQueryParam = "token"

	// RequestIDHeaderName is echoed on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"
)
