package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-engine/api/controllers"
	"github.com/angelmondragon/storefront-engine/api/middleware"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sessions middleware.SessionProvider,
	identity controllers.IdentityService,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	readiness map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var idempotencyStore redis.IdempotencyStore
	identityLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		idempotencyStore = redisClient
		identityPolicy := middleware.NewRateLimitPolicy(
			"identity",
			cfg.RateLimit.IdentityWindow,
			cfg.RateLimit.IdentityIPLimit,
			cfg.RateLimit.IdentityValueLimit,
		)
		identityLimit = middleware.RateLimit(identityPolicy, redisClient, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/menu", controllers.MenuList(logg))

		r.Route("/identity", func(r chi.Router) {
			r.Get("/", controllers.IdentityCurrent(logg))
			r.Delete("/", controllers.IdentityForget(logg))
			r.With(identityLimit).Post("/check", controllers.IdentityCheck(identity, logg))
			r.With(identityLimit).Post("/login", controllers.IdentityLogin(identity, logg))
			r.With(identityLimit).Post("/register", controllers.IdentityRegister(identity, logg))
		})

		r.Route("/configurator", func(r chi.Router) {
			r.Post("/", controllers.ConfiguratorStart(logg))
			r.Get("/", controllers.ConfiguratorView(logg))
			r.Delete("/", controllers.ConfiguratorClose(logg))
			r.Post("/variant", controllers.ConfiguratorVariant(logg))
			r.Post("/toggle", controllers.ConfiguratorToggle(logg))
			r.Post("/advance", controllers.ConfiguratorAdvance(logg))
			r.Post("/retreat", controllers.ConfiguratorRetreat(logg))
			r.Post("/jump", controllers.ConfiguratorJump(logg))
			r.Post("/quantity", controllers.ConfiguratorQuantity(logg))
			r.Post("/observation", controllers.ConfiguratorObservation(logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(logg))
			r.Delete("/items/{itemID}", controllers.CartRemove(logg))
			r.Post("/items/{itemID}/quantity", controllers.CartQuantity(logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutStart(logg))
			r.Get("/", controllers.CheckoutView(logg))
			r.Post("/delivery-mode", controllers.CheckoutDeliveryMode(logg))
			r.Get("/addresses", controllers.CheckoutAddresses(logg))
			r.Post("/addresses", controllers.CheckoutCreateAddress(logg))
			r.Post("/address", controllers.CheckoutSelectAddress(logg))
			r.Get("/districts", controllers.CheckoutDistricts(logg))
			r.Get("/streets", controllers.CheckoutStreets(logg))
			r.Post("/payment", controllers.CheckoutPayment(logg))
			r.Post("/change/answer", controllers.CheckoutNeedsChange(logg))
			r.Post("/change/evaluate", controllers.CheckoutEvaluateChange(logg))
			r.Post("/change/confirm", controllers.CheckoutConfirmChange(logg))
			r.Post("/back", controllers.CheckoutBack(logg))
			r.Post("/submit", controllers.CheckoutSubmit(logg))
			r.Get("/points", controllers.CheckoutPoints(logg))
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Post("/", controllers.TrackingStart(logg))
			r.Get("/", controllers.TrackingSnapshot(logg))
			r.Delete("/", controllers.TrackingStop(logg))
		})
	})

	return r
}
