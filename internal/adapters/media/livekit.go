// Package media mints credentials for the external media-room service.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VideoGrant mirrors the LiveKit access-token grant.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type Claims struct {
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

// LiveKitIssuer signs HS256 access tokens with the API key pair.
type LiveKitIssuer struct {
	url       string
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewLiveKitIssuer(cfg config.MediaConfig) *LiveKitIssuer {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &LiveKitIssuer{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: []byte(cfg.APISecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (l *LiveKitIssuer) Issue(_ context.Context, g core.MediaGrant) (core.MediaToken, error) {
	now := l.now()
	claims := Claims{
		Name: g.Name,
		Video: VideoGrant{
			Room:           g.Room,
			RoomJoin:       true,
			CanPublish:     g.CanPublish,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.apiKey,
			Subject:   string(g.Identity),
			ID:        string(g.Identity),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.apiSecret)
	if err != nil {
		return core.MediaToken{}, fmt.Errorf("sign media token: %w", err)
	}
	return core.MediaToken{Token: signed, URL: l.url, Room: g.Room}, nil
}

// verify parses a token minted by this issuer.
func (l *LiveKitIssuer) verify(token string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return l.apiSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(l.apiKey))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MockIssuer hands out opaque tokens when no media service is configured.
type MockIssuer struct{}

func (MockIssuer) Issue(_ context.Context, g core.MediaGrant) (core.MediaToken, error) {
	return core.MediaToken{
		Token:    "mock_" + uuid.NewString(),
		Room:     g.Room,
		MockMode: true,
	}, nil
}

// NewIssuer falls back to the mock issuer unless url, key and secret are set.
func NewIssuer(cfg config.MediaConfig) core.MediaTokenIssuer {
	if !cfg.Configured() {
		log.Warn().Str("module", "adapters.media").Msg("media service not configured, issuing mock tokens")
		return MockIssuer{}
	}
	return NewLiveKitIssuer(cfg)
}
