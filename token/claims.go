package token

import "time"

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the decoded, signature-checked content of a token.
type Claims struct {
	JTI           string
	Type          Type
	Subject       string
	FamilyVersion int64
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// TTL is the lifetime left at now, never negative.
func (c *Claims) TTL(now time.Time) time.Duration {
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Pair is what every issuance returns.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_token_expired_utc"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_token_expired_utc"`
}

// Principal identifies the user a pair is minted for. FamilyVersion is the
// persisted value and acts as a floor for the store counter.
type Principal struct {
	UserID        string
	FamilyVersion int64
}
