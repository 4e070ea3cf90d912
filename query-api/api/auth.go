package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const (
	AuthModeJWKS  = "jwks"
	AuthModeHS256 = "hs256"
	AuthModeNone  = "none"

	// anonymousUser is reported for every caller when authentication is off.
	anonymousUser = "anonymous"
)

// Auth validates incoming JWT tokens.
type Auth struct {
	Mode     string
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string
	Secret   []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// AuthOptions configures NewAuth.
type AuthOptions struct {
	Mode     string
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string
	Secret   string
	CacheTTL time.Duration
}

// NewAuth creates an Auth for the given mode.
func NewAuth(opts AuthOptions) (*Auth, error) {
	a := &Auth{
		Mode:        opts.Mode,
		JWKS:        opts.JWKS,
		Audience:    opts.Audience,
		Issuer:      opts.Issuer,
		keyCacheTTL: opts.CacheTTL,
	}
	switch opts.Mode {
	case AuthModeNone:
	case AuthModeHS256:
		if opts.Secret == "" {
			return nil, errors.New("LOCAL_AUTH_SHARED_SECRET must be set when AUTH_MODE=hs256")
		}
		a.Secret = []byte(opts.Secret)
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	case AuthModeJWKS:
		if opts.JWKS == nil {
			return nil, errors.New("jwks not configured")
		}
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q", opts.Mode)
	}
	return a, nil
}

// UserIDFromAuthHeader extracts the user identifier from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	if a.Mode == AuthModeNone {
		return anonymousUser, nil
	}
	if h == "" {
		return "", errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return "", err
	}
	return a.UserIDFromBearer(token)
}

// UserIDFromBearer validates a compact JWT and returns its subject.
func (a *Auth) UserIDFromBearer(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", errBadAuthorization
	}
	parsedToken, err := a.parser.Parse(tokenStr, a.keyFor)
	if err != nil {
		return "", err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, true) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, true) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) keyFor(token *jwt.Token) (any, error) {
	if a.Mode == AuthModeHS256 {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.Secret, nil
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
