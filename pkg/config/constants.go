package config

// EnvPrefix is intentionally empty; every field names its variable explicitly.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RESGATE_DB_DSN"
	EnvDBHost = "RESGATE_DB_HOST"
	EnvDBUser = "RESGATE_DB_USER"
	EnvDBName = "RESGATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
