package config

import "time"

// TokenConfig drives token issuance in the development backend.
type TokenConfig interface {
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Token) GetDefaultAccessTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (Token) GetDefaultRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}
