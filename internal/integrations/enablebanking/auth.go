package enablebanking

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "enablebanking.com"
	tokenAudience = "api.enablebanking.com"
	tokenLifetime = time.Hour
)

// AuthProvider mints the bearer credential for gateway requests
type AuthProvider interface {
	Token() (string, error)
}

// JWTAuth signs short-lived RS256 assertions keyed by the application id
type JWTAuth struct {
	appID    string
	keyB64   string
	lifetime time.Duration
	now      func() time.Time

	mu        sync.Mutex
	parsedKey *rsa.PrivateKey
}

// NewJWTAuth creates a provider from a base64-encoded PEM private key.
// Missing credentials surface as a ConfigError on the first Token call.
func NewJWTAuth(appID, keyB64 string) *JWTAuth {
	return &JWTAuth{
		appID:    appID,
		keyB64:   keyB64,
		lifetime: tokenLifetime,
		now:      time.Now,
	}
}

func (a *JWTAuth) key() (*rsa.PrivateKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.parsedKey != nil {
		return a.parsedKey, nil
	}
	if a.keyB64 == "" {
		return nil, &apperr.ConfigError{Key: "EB_PRIVATE_KEY_B64"}
	}
	pem, err := base64.StdEncoding.DecodeString(a.keyB64)
	if err != nil {
		return nil, &apperr.ConfigError{Key: "EB_PRIVATE_KEY_B64", Reason: "not valid base64"}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, &apperr.ConfigError{Key: "EB_PRIVATE_KEY_B64", Reason: fmt.Sprintf("not an RSA private key: %v", err)}
	}
	a.parsedKey = key
	return key, nil
}

// Token returns a freshly signed assertion valid for one hour
func (a *JWTAuth) Token() (string, error) {
	if a.appID == "" {
		return "", &apperr.ConfigError{Key: "EB_APPLICATION_ID"}
	}
	key, err := a.key()
	if err != nil {
		return "", err
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(a.lifetime).Unix(),
	})
	token.Header["kid"] = a.appID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign gateway token: %w", err)
	}
	return signed, nil
}
