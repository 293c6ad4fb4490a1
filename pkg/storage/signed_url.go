package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DownloadSigner creates and validates signed download tokens for original
// image files, so the page renderer can fetch restricted originals without
// holding a user credential.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token granting access to one image file.
func (s *DownloadSigner) Generate(scanNumber, imageID int) (string, time.Time, error) {
	if scanNumber <= 0 || imageID <= 0 {
		return "", time.Time{}, fmt.Errorf("scanNumber and imageID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	payload := fmt.Sprintf("%d|%d|%d", scanNumber, imageID, expiresAt.Unix())
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{
		fmt.Sprintf("%d", scanNumber),
		fmt.Sprintf("%d", imageID),
		fmt.Sprintf("%d", expiresAt.Unix()),
		signature,
	}, ".")
	return token, expiresAt, nil
}

// Validate checks a token and returns the image it grants access to.
func (s *DownloadSigner) Validate(token string) (scanNumber, imageID int, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return 0, 0, fmt.Errorf("invalid token format")
	}

	scanNumber, err = parseInt(parts[0])
	if err != nil {
		return 0, 0, err
	}
	imageID, err = parseInt(parts[1])
	if err != nil {
		return 0, 0, err
	}
	expUnix, err := parseInt64(parts[2])
	if err != nil {
		return 0, 0, err
	}

	payload := fmt.Sprintf("%s|%s|%s", parts[0], parts[1], parts[2])
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return 0, 0, fmt.Errorf("invalid token signature")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return 0, 0, fmt.Errorf("token expired")
	}
	return scanNumber, imageID, nil
}

func parseInt(raw string) (int, error) {
	v, err := parseInt64(raw)
	return int(v), err
}

func parseInt64(raw string) (int64, error) {
	var v int64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid token field")
	}
	return v, nil
}
