// Package lifecycle implements the invitation and check-in state machine:
// inviting guests, recording RSVP responses, issuing short-lived check-in
// credentials, and redeeming them at the door.
package lifecycle

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// CredentialTTL is how long an issued check-in credential stays redeemable.
const CredentialTTL = 5 * time.Minute

var (
	ErrCredentialMalformed = errors.New("check-in credential malformed")
	ErrCredentialExpired   = errors.New("check-in credential expired")
)

// Credential is the payload carried inside a guest's check-in QR code.
// It is encoded, not signed: authenticity comes from the one-shot
// CheckInToken matched against the stored invitation on redemption.
type Credential struct {
	EventID      string `json:"eventId"`
	GuestID      string `json:"guestId"`
	CheckInToken string `json:"checkInToken"`
	// IssuedAt is milliseconds since the Unix epoch.
	IssuedAt int64 `json:"issuedAt"`
}

// Encode serializes the credential for embedding in a QR code.
func (c Credential) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeCredential parses an encoded credential. It does not check expiry;
// see Credential.ExpiredAt.
func DecodeCredential(s string) (Credential, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Credential{}, ErrCredentialMalformed
	}
	var c Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return Credential{}, ErrCredentialMalformed
	}
	if c.EventID == "" || c.GuestID == "" || c.CheckInToken == "" {
		return Credential{}, ErrCredentialMalformed
	}
	return c, nil
}

// ExpiredAt reports whether the credential is past its redemption window
// at the given instant.
func (c Credential) ExpiredAt(now time.Time) bool {
	issued := time.UnixMilli(c.IssuedAt)
	return now.Sub(issued) > CredentialTTL
}
