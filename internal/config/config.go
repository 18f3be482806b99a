package config

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	StorageConfig
	TokenConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAPIBaseURL() string
	GetDevToken() string
	GetJWTSecret() string
	GetDemoPassword() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Storage
	Token
}

func New() Config {
	return mainConfig{}
}
