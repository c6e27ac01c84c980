package session

// StoredSession is the only durable authentication state on the client.
//
// A session without a refresh token does not exist, whatever the access token
// holds.
type StoredSession struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

// Valid reports whether s describes an existing session.
func (s *StoredSession) Valid() bool {
	return s != nil && s.RefreshToken != ""
}

// WithAccessToken returns a copy of s carrying a new access token.
func (s StoredSession) WithAccessToken(access string) *StoredSession {
	s.AccessToken = access
	return &s
}
