package model

// TokenPair holds the access/refresh credential pair issued by the backend.
// No expiry is tracked client-side; expiry is discovered reactively through
// a rejected request.
type TokenPair struct {
	Access  string
	Refresh string
}

// HasRefresh reports whether a refresh exchange is possible at all.
func (p TokenPair) HasRefresh() bool {
	return p.Refresh != ""
}

// User is the profile object returned alongside tokens on login.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
