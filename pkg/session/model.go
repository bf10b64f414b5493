package session

// Storage keys for the persisted session values.
const (
	KeyAccessToken  = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyNotice       = "sessionMsg"
)

// UserSummary is the profile returned by the backend on login and by /auth/me.
type UserSummary struct {
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Role        string `json:"role,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Credentials represents the authenticated state of the client.
type Credentials struct {
	AccessToken  string      // Bearer token attached to every request
	RefreshToken string      // Token exchanged at /auth/refresh for a new access token
	User         UserSummary // Profile of the signed in user
}

// Empty reports whether no session is established.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}
