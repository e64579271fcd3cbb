// Package overflow issues signed PUT URLs for the secondary backend
// used when the primary store runs close to its quota.
package overflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// DefaultExpiry bounds how long a signed PUT stays valid.
const DefaultExpiry = 300 * time.Second

type Signer struct {
	baseURL   string
	publicURL string
	secret    []byte
	now       func() time.Time
}

func NewSigner(baseURL, publicURL, secret string) (*Signer, error) {
	if baseURL == "" || secret == "" {
		return nil, fmt.Errorf("overflow signer: base url and secret are required")
	}
	if publicURL == "" {
		publicURL = baseURL
	}
	return &Signer{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		secret:    []byte(secret),
		now:       time.Now,
	}, nil
}

// Sign grants a single PUT of the named object. The token covers the
// object path, content type and expiry; tampering with any of them
// invalidates it.
func (s *Signer) Sign(_ context.Context, filename, contentType string) (domain.SignedUpload, error) {
	if filename == "" {
		return domain.SignedUpload{}, domain.WrapError(domain.ErrInvalidInput, "sign upload", fmt.Errorf("filename is required"))
	}

	expiresAt := s.now().Add(DefaultExpiry).Unix()
	token := s.token(filename, contentType, expiresAt)

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expiresAt, 10))
	query.Set("token", token)
	if contentType != "" {
		query.Set("contentType", contentType)
	}

	escaped := escapePath(filename)
	return domain.SignedUpload{
		UploadURL:        s.baseURL + "/" + escaped + "?" + query.Encode(),
		PublicURL:        s.publicURL + "/" + escaped,
		ExpiresInSeconds: int(DefaultExpiry / time.Second),
	}, nil
}

// Verify checks a token produced by Sign. The receiving side of the
// overflow backend uses it to accept or reject the PUT.
func (s *Signer) Verify(filename, contentType, token string, expiresAt int64, at time.Time) bool {
	if at.Unix() > expiresAt {
		return false
	}
	expected := s.token(filename, contentType, expiresAt)
	return hmac.Equal([]byte(expected), []byte(token))
}

func (s *Signer) token(filename, contentType string, expiresAt int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", filename, contentType, expiresAt)
	return hex.EncodeToString(mac.Sum(nil))
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
