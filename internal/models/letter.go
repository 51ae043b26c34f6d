package models

import "time"

// LetterLink is a signed, expiring download link for a rendered letter.
type LetterLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
