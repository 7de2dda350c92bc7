package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749,
// as returned by the Microsoft identity platform v2.0 token endpoint for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer token used to access the protected API.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: Short-lived (typically 1 hour)
	// A nil pointer means the provider returned no access token, which is how
	// error responses such as invalid_grant present themselves.
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer" from the
	// Microsoft identity platform).
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 3600 (for 1 hour)
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Only present when the offline_access scope was granted. A nil pointer means
	// this particular response carried no refresh token; it does not imply the
	// previously issued refresh token was revoked.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space-separated list of scopes actually granted.
	// May be less than requested if some scopes were denied.
	Scope string `json:"scope,omitempty"`

	// ErrorCode and ErrorDescription are set on error responses instead of the
	// token fields. Example: error "invalid_grant" when an authorization code
	// has expired or was already redeemed.
	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}
