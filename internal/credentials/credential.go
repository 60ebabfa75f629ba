package credentials

import "time"

// Credential represents the delegated Spotify tokens persisted for one
// authenticated browser session. There is at most one record per session id.
type Credential struct {
	SessionID    string    `bson:"_id" json:"sessionId"`
	AccessToken  string    `bson:"accessToken" json:"accessToken"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
}
