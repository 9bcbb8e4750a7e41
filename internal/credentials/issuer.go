// Package credentials issues access tokens for the external LiveKit media
// server. Tokens are HS256 JWTs signed with the API key pair shared with
// that server; nothing in this process validates them afterwards.
package credentials

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mossy-p/conference-rooms/config"
	"github.com/rs/zerolog/log"
)

// KeyPrefix is the prefix every LiveKit API key id carries.
const KeyPrefix = "API"

// DefaultTTL matches the LiveKit server SDK default token lifetime.
const DefaultTTL = 6 * time.Hour

var (
	ErrNotConfigured = errors.New("livekit credentials are not configured")
	ErrInvalidGrant  = errors.New("room and identity are required")
	ErrInvalidToken  = errors.New("invalid access token")
)

// VideoGrant is the "video" claim understood by the media server.
type VideoGrant struct {
	RoomJoin bool   `json:"roomJoin,omitempty"`
	Room     string `json:"room,omitempty"`
}

// Claims represents the claims in an issued access token
type Claims struct {
	Video *VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs join tokens. It is safe for concurrent use; its fields never
// change after NewIssuer.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	debug     bool
	now       func() time.Time
}

func NewIssuer(cfg config.LiveKitConfig, debug bool) *Issuer {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		ttl:       ttl,
		debug:     debug,
		now:       time.Now,
	}
}

// Configured reports whether both a key id and a secret are present.
func (i *Issuer) Configured() bool {
	return i.apiKey != "" && i.apiSecret != ""
}

// Validate returns ErrNotConfigured when the key pair cannot sign tokens.
func (i *Issuer) Validate() error {
	switch {
	case i.apiKey == "":
		return fmt.Errorf("%w: LIVEKIT_API_KEY is empty", ErrNotConfigured)
	case i.apiSecret == "":
		return fmt.Errorf("%w: LIVEKIT_API_SECRET is empty", ErrNotConfigured)
	case !strings.HasPrefix(i.apiKey, KeyPrefix):
		return fmt.Errorf("%w: LIVEKIT_API_KEY must start with %q", ErrNotConfigured, KeyPrefix)
	}
	return nil
}

// KeyID returns the signing key id, which is public.
func (i *Issuer) KeyID() string {
	return i.apiKey
}

// Issue returns a token allowing identity to join roomID.
func (i *Issuer) Issue(roomID, identity string) (string, error) {
	if err := i.Validate(); err != nil {
		log.Error().Str("module", "credentials").Err(err).Msg("cannot issue access token")
		return "", err
	}
	if roomID == "" || identity == "" {
		return "", ErrInvalidGrant
	}

	now := i.now()
	claims := Claims{
		Video: &VideoGrant{RoomJoin: true, Room: roomID},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			ID:        identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(i.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	if i.debug {
		log.Debug().
			Str("module", "credentials").
			Str("token", tokenString).
			Interface("claims", claims).
			Msg("generated access token")
	}

	return tokenString, nil
}

// Parse verifies tokenString against the issuer's secret and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.apiSecret), nil
	}, jwt.WithIssuer(i.apiKey), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
