package sessions

import "time"

// Session is a stored refresh session keyed by the opaque refresh token.
type Session struct {
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	Sub          string    `bson:"sub" json:"sub"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
}
