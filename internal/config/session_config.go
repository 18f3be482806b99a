package config

import "time"

type SessionConfig interface {
	GetRefreshLeadTime() time.Duration
	GetMinRefreshDelay() time.Duration
	GetLoginPath() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadTime is how long before expiry the silent refresh fires.
func (Session) GetRefreshLeadTime() time.Duration {
	return 60 * time.Second
}

// GetMinRefreshDelay is the floor on any scheduled refresh delay.
func (Session) GetMinRefreshDelay() time.Duration {
	return 5 * time.Second
}

func (Session) GetLoginPath() string {
	return "/login"
}
