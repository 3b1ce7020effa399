package constants

const (
	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// RequestIDHeader carries the request id in and out of the relay
	RequestIDHeader = "X-Request-Id"

	// Realm reported in WWW-Authenticate challenges
	Realm = "identity-bridge"
)
