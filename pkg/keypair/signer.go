// Package keypair issues the key-pair JWTs the service accepts as bearer
// credentials.
package keypair

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenLifetime is the validity window requested for each token. The
	// service rejects anything above an hour.
	tokenLifetime = 59 * time.Minute

	// refreshMargin is how close to expiry a cached token may get before it
	// is considered stale, so a token is never presented mid-request with
	// seconds to live.
	refreshMargin = time.Minute
)

// Signer produces signed, time-bounded authentication tokens for one
// account/user identity. Tokens are cached until close to expiry; concurrent
// callers observing a stale token share a single regeneration.
type Signer struct {
	key     *rsa.PrivateKey
	account string
	user    string

	now    func() time.Time
	signFn func() (string, time.Time, error)

	mu     sync.Mutex
	token  string
	expiry time.Time
	group  singleflight.Group
}

// NewSigner creates a signer for the given identity. The account may carry a
// region suffix (AAA00000.us-east-1); only the part before the first dot
// participates in the token identity. Account and user are upper-cased to
// match the service's identifier convention.
func NewSigner(key *rsa.PrivateKey, account, user string) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("signing key is required")
	}
	if account == "" || user == "" {
		return nil, fmt.Errorf("account and user are required")
	}
	account = strings.ToUpper(account)
	if dot := strings.Index(account, "."); dot != -1 {
		account = account[:dot]
	}
	s := &Signer{
		key:     key,
		account: account,
		user:    strings.ToUpper(user),
		now:     time.Now,
	}
	s.signFn = s.sign
	return s, nil
}

// Token returns a valid signed token, reusing the cached one while it has
// comfortably more than the refresh margin of validity left. When a refresh
// is needed, concurrent callers coalesce onto one signing operation and all
// observe its result.
func (s *Signer) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && s.now().Before(s.expiry.Add(-refreshMargin)) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	ch := s.group.DoChan("token", func() (any, error) {
		token, expiry, err := s.signFn()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.token = token
		s.expiry = expiry
		s.mu.Unlock()
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("signing token: %w", res.Err)
		}
		return res.Val.(string), nil
	}
}

// Invalidate discards the cached token so the next Token call signs a fresh
// one. Used after the service rejects a token that looked valid locally.
func (s *Signer) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

// sign builds and signs one JWT. The issuer is the qualified user name
// suffixed with the public key fingerprint, which is how the service matches
// the token to a registered key.
func (s *Signer) sign() (string, time.Time, error) {
	fingerprint, err := Fingerprint(&s.key.PublicKey)
	if err != nil {
		return "", time.Time{}, err
	}
	qualified := s.account + "." + s.user
	now := s.now()
	expiry := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    qualified + ".SHA256:" + fingerprint,
		Subject:   qualified,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// Fingerprint returns the standard-base64 SHA-256 digest of the public key
// in PKIX DER form, the encoding the service stores for registered keys.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("encoding public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
