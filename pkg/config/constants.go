package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ACQUIREMOCK_DB_DSN"
	EnvDBHost = "ACQUIREMOCK_DB_HOST"
	EnvDBUser = "ACQUIREMOCK_DB_USER"
	EnvDBName = "ACQUIREMOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
