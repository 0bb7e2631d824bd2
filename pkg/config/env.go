package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvUpstreamBaseURL    = "STOREFRONT_UPSTREAM_BASE_URL"
	EnvPricingSimpleRatio = "STOREFRONT_PRICING_SIMPLE_RATIO"
	EnvTrackingInterval   = "STOREFRONT_TRACKING_POLL_INTERVAL"
	EnvUseSQLite          = "STOREFRONT_USE_SQLITE"
	EnvCheckoutSubmitTTL  = "STOREFRONT_CHECKOUT_SUBMIT_LOCK_TTL"
	EnvSessionSnapshotTTL = "STOREFRONT_SESSION_SNAPSHOT_TTL"
	EnvTrackingPickupAddr = "STOREFRONT_TRACKING_PICKUP_ADDRESS"
)

const defaultSimpleRatio = "0.70"

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
