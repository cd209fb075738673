package models

import "time"

type AuthUser struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// AuthState mirrors the persisted client auth store kept in the auth cookie.
// TokenVerified and LoginAt are unix milliseconds.
type AuthState struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	User            *AuthUser `json:"user"`
	Admin           *AuthUser `json:"admin"`
	Token           string    `json:"token"`
	UserType        string    `json:"userType"`
	TokenValid      bool      `json:"tokenValid"`
	TokenVerified   int64     `json:"tokenVerified,omitempty"`
	LoginAt         int64     `json:"loginTime,omitempty"`
}

func (s *AuthState) IsAdmin() bool {
	return s != nil && s.UserType == UserTypeAdmin && s.Admin != nil
}

// Principal returns whichever identity the state carries.
func (s *AuthState) Principal() *AuthUser {
	if s == nil {
		return nil
	}
	if s.UserType == UserTypeAdmin && s.Admin != nil {
		return s.Admin
	}
	return s.User
}

func (s *AuthState) LoggedInAt() time.Time {
	if s == nil || s.LoginAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LoginAt)
}
