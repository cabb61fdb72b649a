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

// SignedURLSigner creates and validates signed download tokens. A token binds
// a subject (document or export job id) to a stored file path.
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

// TTL returns the lifetime of generated tokens.
func (s *SignedURLSigner) TTL() time.Duration { return s.ttl }

// Generate returns a signed token referencing the subject and file path.
func (s *SignedURLSigner) Generate(subject, relPath string) (string, time.Time, error) {
	if subject == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("subject and relPath required")
	}
	if strings.Contains(subject, ".") {
		return "", time.Time{}, fmt.Errorf("subject must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{subject, ts, encodedPath, s.sign(subject, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata.
// When allowExpired is true, the timestamp check is skipped (used by cleanup routines).
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (subject, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	subject, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(subject, ts, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenSignature
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: decode path: %v", ErrTokenMalformed, err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: invalid timestamp", ErrTokenMalformed)
	}
	expiresAt = time.Unix(expUnix, 0)

	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return subject, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(subject, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(subject + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
