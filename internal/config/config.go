package config

type Config interface {
	SessionConfig
	ServiceConfig
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
