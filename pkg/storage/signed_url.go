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

var (
	ErrTokenFormat    = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedToken is the metadata carried by a download token.
type SignedToken struct {
	Subject   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates HMAC-signed download tokens.
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
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate returns a token binding subject (the owning profile) to a stored file path.
func (s *SignedURLSigner) Generate(subject, relPath string) (string, time.Time, error) {
	if subject == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("subject and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedSubject := base64.RawURLEncoding.EncodeToString([]byte(subject))
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(encodedSubject, ts, encodedPath)
	return strings.Join([]string{encodedSubject, ts, encodedPath, signature}, "."), expiresAt, nil
}

// Parse validates a token. When allowExpired is true the expiry check is skipped.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (SignedToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedToken{}, ErrTokenFormat
	}
	encodedSubject, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedSubject, ts, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return SignedToken{}, ErrTokenSignature
	}

	subject, err := base64.RawURLEncoding.DecodeString(encodedSubject)
	if err != nil {
		return SignedToken{}, fmt.Errorf("decode subject: %w", err)
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return SignedToken{}, fmt.Errorf("decode path: %w", err)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SignedToken{}, ErrTokenFormat
	}

	parsed := SignedToken{Subject: string(subject), Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && !s.now().Before(parsed.ExpiresAt) {
		return SignedToken{}, ErrTokenExpired
	}
	return parsed, nil
}

func (s *SignedURLSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
