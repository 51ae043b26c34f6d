package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token validation failures.
var (
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner creates and validates signed download tokens for generated documents.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token binding a resource id to a purpose (e.g. "letter") until the TTL elapses.
func (s *SignedURLSigner) Generate(resourceID, purpose string) (string, time.Time, error) {
	if resourceID == "" || purpose == "" {
		return "", time.Time{}, fmt.Errorf("resourceID and purpose required")
	}
	if strings.Contains(resourceID, ".") {
		return "", time.Time{}, fmt.Errorf("resourceID must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPurpose := base64.RawURLEncoding.EncodeToString([]byte(purpose))
	signature := s.sign(resourceID, ts, encodedPurpose)
	token := strings.Join([]string{resourceID, ts, encodedPurpose, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded resource id and purpose.
func (s *SignedURLSigner) Parse(token string) (resourceID, purpose string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	resourceID, ts, encodedPurpose, signature := parts[0], parts[1], parts[2], parts[3]

	rawPurpose, err := base64.RawURLEncoding.DecodeString(encodedPurpose)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: decode purpose: %v", ErrTokenMalformed, err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: invalid timestamp", ErrTokenMalformed)
	}
	expected := s.sign(resourceID, ts, encodedPurpose)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenSignature
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return resourceID, string(rawPurpose), expiresAt, nil
}

func (s *SignedURLSigner) sign(resourceID, ts, encodedPurpose string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(resourceID + "|" + ts + "|" + encodedPurpose))
	return hex.EncodeToString(mac.Sum(nil))
}
