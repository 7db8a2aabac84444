package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime given to tokens signed without an expiry.
const DefaultTokenTTL = 24 * time.Hour

const devSecret = "dev-secret"

// Claims represents the identity contained in a JWT.
type Claims struct {
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Jti     string `json:"jti,omitempty"`
	Exp     int64  `json:"exp,omitempty"`
	Iat     int64  `json:"iat,omitempty"`
}

var (
	// ErrMissingSecret is returned in production when no secret was configured.
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// hs256Header is the fixed, pre-encoded JOSE header of every token.
var hs256Header = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

type keyring struct {
	mu         sync.RWMutex
	secret     []byte
	production bool
}

var keys keyring

// Configure sets the signing secret from config. Outside production an empty
// secret falls back to a fixed development key.
func Configure(secret, env string) {
	keys.mu.Lock()
	defer keys.mu.Unlock()
	keys.secret = []byte(strings.TrimSpace(secret))
	keys.production = env == "production"
}

func (k *keyring) key() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.secret) > 0 {
		return k.secret, nil
	}
	if k.production {
		return nil, ErrMissingSecret
	}
	return []byte(devSecret), nil
}

// ExpiresAt returns the expiry as a time, or the zero time when unset.
func (c Claims) ExpiresAt() time.Time {
	if c.Exp <= 0 {
		return time.Time{}
	}
	return time.Unix(c.Exp, 0).UTC()
}

// SignJWT signs claims with HS256, filling in iat, exp and jti when unset.
func SignJWT(claims Claims) (string, error) {
	key, err := keys.key()
	if err != nil {
		return "", err
	}
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}
	now := time.Now().UTC()
	if claims.Iat == 0 {
		claims.Iat = now.Unix()
	}
	if claims.Exp == 0 {
		claims.Exp = now.Add(DefaultTokenTTL).Unix()
	}
	if claims.Jti == "" {
		claims.Jti = uuid.NewString()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	signed := hs256Header + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signed + "." + mac(signed, key), nil
}

// VerifyJWT checks the signature and expiry of token and returns its claims.
func VerifyJWT(token string) (Claims, error) {
	key, err := keys.key()
	if err != nil {
		return Claims{}, err
	}
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 || strings.Count(token, ".") != 2 {
		return Claims{}, ErrInvalidToken
	}
	signed, sig := token[:dot], token[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(mac(signed, key))) {
		return Claims{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(signed[strings.IndexByte(signed, '.')+1:])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Sub == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Exp > 0 && time.Now().UTC().Unix() > claims.Exp {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func mac(input string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
