package domain

// Fixed logical keys under which the credential pair is persisted.
const (
	CredentialKeyAccess  = "access_token"
	CredentialKeyRefresh = "refresh_token"
)

// CredentialPair is the access/refresh token pair of the current login.
// Exactly one pair is valid at a time, process-wide. It is created on login or
// renewal and cleared on logout or renewal failure.
type CredentialPair struct {
	// AccessToken is the bearer token attached to every call.
	AccessToken string `json:"access_token"`
	// RefreshToken is exchanged for a fresh pair when the access token expires.
	RefreshToken string `json:"refresh_token"`
}

// IsZero returns true if neither token is set.
func (c CredentialPair) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// HasRefreshToken returns true if a refresh token is available.
func (c CredentialPair) HasRefreshToken() bool {
	return c.RefreshToken != ""
}
