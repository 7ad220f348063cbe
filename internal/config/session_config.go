package config

import "time"

type SessionConfig interface {
	GetPkceSessionTTL() time.Duration
	GetTokenSessionTTL() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetPkceSessionTTL() time.Duration {
	return 10 * time.Minute
}

func (Session) GetTokenSessionTTL() time.Duration {
	return 30 * 24 * time.Hour // 30 days
}
