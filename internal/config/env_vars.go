package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	httpTimeoutEnvVar = "CANVA_HTTP_TIMEOUT"

	defaultHTTPTimeout = 15 * time.Second
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Funeral Coordinator")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return strings.ToUpper(env)
}

// IsProduction turns on Secure cookies and silences configuration diagnostics.
func (e EnvVars) IsProduction() bool {
	switch e.GetEnv() {
	case "PROD", "PRODUCTION":
		return true
	}
	return false
}

// GetHTTPTimeout bounds every outbound call to Canva (token, API and JWKS endpoints).
func (EnvVars) GetHTTPTimeout() time.Duration {
	raw := GetEnv(httpTimeoutEnvVar, "")
	if raw == "" {
		return defaultHTTPTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultHTTPTimeout
	}
	return d
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
