package config

const (
	EnvPrefix = "LAVISH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "LAVISH_APP_ENV"
	EnvPort     = "LAVISH_APP_PORT"
	EnvLogLevel = "LAVISH_LOG_LEVEL"

	EnvDBDSN  = "LAVISH_DB_DSN"
	EnvDBHost = "LAVISH_DB_HOST"
	EnvDBUser = "LAVISH_DB_USER"
	EnvDBName = "LAVISH_DB_NAME"

	EnvRedisURL = "LAVISH_REDIS_URL"

	EnvJWTSecret               = "LAVISH_JWT_SECRET"
	EnvJWTIssuer               = "LAVISH_JWT_ISSUER"
	EnvJWTExpMins              = "LAVISH_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "LAVISH_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite               = "LAVISH_USE_SQLITE"
	EnvTaxRate                 = "LAVISH_TAX_RATE"
	EnvFlatShippingFee         = "LAVISH_FLAT_SHIPPING_FEE"
	EnvFreeShippingThreshold   = "LAVISH_FREE_SHIPPING_THRESHOLD"
	EnvReturnWindowDays        = "LAVISH_RETURN_WINDOW_DAYS"
	EnvCORSAllowedOrigins      = "LAVISH_CORS_ALLOWED_ORIGINS"
	EnvPubSubOrdersTopic       = "LAVISH_PUBSUB_ORDERS_TOPIC"
	EnvPubSubCatalogTopic      = "LAVISH_PUBSUB_CATALOG_TOPIC"
	EnvWorkerCartPurgeInterval = "LAVISH_WORKER_CART_PURGE_INTERVAL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
