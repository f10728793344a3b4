package auth

import (
	"github.com/gin-contrib/sessions"
)

// Session field names. Exactly these three fields make up the login
// state; Logout clears them all.
const (
	SessionUserId           = "user_id"
	SessionIdentityProvider = "identity_provider"
	SessionToken            = "token"
)

// Login binds a session to a user and the provider that vouched for it.
func Login(s sessions.Session, userId, provider, token string) error {
	s.Set(SessionUserId, userId)
	s.Set(SessionIdentityProvider, provider)
	s.Set(SessionToken, token)
	return s.Save()
}

// Logout clears the login state. Idempotent.
func Logout(s sessions.Session) error {
	s.Delete(SessionUserId)
	s.Delete(SessionIdentityProvider)
	s.Delete(SessionToken)
	return s.Save()
}

// SessionUser returns the stored user id, or "" for an anonymous session.
func SessionUser(s sessions.Session) string {
	userId, _ := s.Get(SessionUserId).(string)
	return userId
}

// SessionProvider returns the identity provider recorded at login, plus
// the provider token needed for revocation checks.
func SessionProvider(s sessions.Session) (provider, token string) {
	provider, _ = s.Get(SessionIdentityProvider).(string)
	token, _ = s.Get(SessionToken).(string)
	return provider, token
}
