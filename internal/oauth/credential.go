package oauth

import (
	"encoding/json"
	"math"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the token triple fella persists between runs.
//
// A Credential without a refresh token cannot be renewed and is treated as
// absent, whatever its access token and expiry say.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the credential can back an authenticated session.
func (c Credential) Valid() bool {
	return c.RefreshToken != ""
}

// IsZero reports whether no field is set.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.ExpiresAt.IsZero()
}

// FreshFor reports whether the access token is present and stays valid for
// at least margin past now.
func (c Credential) FreshFor(now time.Time, margin time.Duration) bool {
	if c.AccessToken == "" || c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Sub(now) > margin
}

// Token converts the credential to an oauth2.Token for use with
// oauth2.Transport.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}

// credentialFile is the on-disk form. expires_at is Unix seconds.
type credentialFile struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at"`
}

// MarshalJSON implements json.Marshaler.
func (c Credential) MarshalJSON() ([]byte, error) {
	var expires float64
	if !c.ExpiresAt.IsZero() {
		expires = float64(c.ExpiresAt.Unix())
	}
	return json.Marshal(credentialFile{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    expires,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	c.AccessToken = f.AccessToken
	c.RefreshToken = f.RefreshToken
	c.ExpiresAt = time.Time{}
	if f.ExpiresAt > 0 && !math.IsInf(f.ExpiresAt, 0) {
		c.ExpiresAt = time.Unix(int64(f.ExpiresAt), 0)
	}
	return nil
}
