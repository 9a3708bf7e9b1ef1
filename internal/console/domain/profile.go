package domain

import "time"

// UserProfile is the subset of the backend user record the console keeps
// after login.
type UserProfile struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
	TenantID string `json:"tenantId"`
	EmailID  string `json:"emailId"`
	Mobile   string `json:"mobile"`
	UserType string `json:"userType"`
	Active   bool   `json:"active"`
}

// Session is the authenticated state as read back from storage.
type Session struct {
	LoggedIn  bool
	UserID    string
	UserRole  string // always re-derived from Profile.UserType on read
	Profile   UserProfile
	LoginTime time.Time

	Token           string // tab-local activeSession
	LastIssuedToken string // persistent lastSessionId
}

// Bound reports whether the tab-local token matches the persistent mirror.
func (s Session) Bound() bool {
	return s.Token != "" && s.Token == s.LastIssuedToken
}
