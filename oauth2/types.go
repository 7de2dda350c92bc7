package oauth2

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, client_secret, redirect_uri
	// Returns: access_token, refresh_token (if offline_access was granted)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id, client_secret
	// Returns: new access_token and possibly a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// PromptType controls the account-selection behaviour of the authorization endpoint.
type PromptType string

const (
	// SelectAccountPrompt forces the account picker even when a single account
	// is already signed in, so a user can switch identities.
	SelectAccountPrompt PromptType = "select_account"
)
