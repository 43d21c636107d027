package domain

// User is the account returned by the service's /auth/me endpoint.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// DisplayName returns the full name when known, otherwise the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
