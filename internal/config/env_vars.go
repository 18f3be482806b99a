package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	apiBaseURLVar  = "ILUMINA_API_URL"
	devTokenVar    = "ILUMINA_DEV_TOKEN"
	jwtSecretVar   = "JWT_SECRET"
	demoPassVar    = "ILUMINA_DEMO_PASSWORD"
	environmentVar = "ENV"
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
	return GetEnv(appNameVar, "ILUMINA")
}

// GetAPIBaseURL returns the REST backend root, without a trailing slash
// (e.g. "https://api.ilumina.example/api").
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8080/api"), "/")
}

// GetDevToken returns the pre-seeded access token. It is only honoured in the
// DEV environment; everywhere else it is reported as empty.
func (e EnvVars) GetDevToken() string {
	if !e.IsDev() {
		return ""
	}
	return GetEnv(devTokenVar, "")
}

func (EnvVars) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "ilumina-dev-secret")
}

// GetDemoPassword is the password given to the seeded demo users of the
// development backend.
func (EnvVars) GetDemoPassword() string {
	return GetEnv(demoPassVar, "ilumina-demo")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(environmentVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
