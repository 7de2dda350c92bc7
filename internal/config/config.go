package config

type Config interface {
	EnvConfig
	GraphConfig
}

type mainConfig struct {
	EnvVars
	Graph
}

func New() Config {
	return mainConfig{}
}
