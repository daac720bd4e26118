package config

const (
	EnvPrefix = "pulseboard"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
