package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "PHARMOS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "PHARMOS_APP_ENV"
	EnvPort     = "PHARMOS_APP_PORT"
	EnvDBDSN    = "PHARMOS_DB_DSN"
	EnvDBHost   = "PHARMOS_DB_HOST"
	EnvDBUser   = "PHARMOS_DB_USER"
	EnvDBName   = "PHARMOS_DB_NAME"
	EnvRedisURL = "PHARMOS_REDIS_URL"

	EnvJWTSecret              = "PHARMOS_JWT_SECRET"
	EnvJWTIssuer              = "PHARMOS_JWT_ISSUER"
	EnvJWTExpMins             = "PHARMOS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PHARMOS_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID        = "PHARMOS_GCP_PROJECT_ID"
	EnvChangesSubscription = "PHARMOS_PUBSUB_CHANGES_SUBSCRIPTION"
	EnvEventsSubscription  = "PHARMOS_PUBSUB_EVENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
