package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tillbook-backend/api/controllers"
	customercontrollers "github.com/angelmondragon/tillbook-backend/api/controllers/customers"
	paymentcontrollers "github.com/angelmondragon/tillbook-backend/api/controllers/payments"
	productcontrollers "github.com/angelmondragon/tillbook-backend/api/controllers/products"
	salecontrollers "github.com/angelmondragon/tillbook-backend/api/controllers/sales"
	"github.com/angelmondragon/tillbook-backend/api/middleware"
	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/internal/sales"
	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/tillbook-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs. Redis and Idempotency
// stay nil when Redis is not configured.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Sales     sales.Service
	Credit    credit.Service
	Customers customers.Service
	Products  products.Service
	Inventory inventory.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		settle := r.With(middleware.Idempotency(deps.Idempotency, logg, middleware.SettlementKeyTTL))
		idem := r.With(middleware.Idempotency(deps.Idempotency, logg, middleware.CatalogueKeyTTL))

		r.Post("/sales/quote", salecontrollers.Quote(deps.Sales, logg))
		settle.Post("/sales", salecontrollers.Create(deps.Sales, logg))
		r.Get("/sales/{saleId}", salecontrollers.Get(deps.Sales, logg))
		settle.Post("/sales/{saleId}/void", salecontrollers.Void(deps.Sales, logg))

		settle.Post("/sales/{saleId}/payments", paymentcontrollers.Apply(deps.Credit, logg))
		r.Get("/sales/{saleId}/payments", paymentcontrollers.List(deps.Credit, logg))
		settle.Post("/sales/{saleId}/payments/{paymentId}/void", paymentcontrollers.Void(deps.Credit, logg))

		idem.Post("/customers", customercontrollers.Create(deps.Customers, logg))
		r.Get("/customers/{customerId}", customercontrollers.Get(deps.Customers, logg))
		r.Get("/customers/{customerId}/credit-summary", customercontrollers.CreditSummary(deps.Credit, logg))
		r.Get("/customers/{customerId}/open-invoices", customercontrollers.OpenInvoices(deps.Credit, logg))

		idem.Post("/products", productcontrollers.Create(deps.Products, logg))
		r.Get("/products/{productId}", productcontrollers.Get(deps.Products, logg))
		r.Get("/products/{productId}/movements", productcontrollers.Movements(deps.Inventory, logg))
		idem.Post("/products/{productId}/adjustments", productcontrollers.Adjust(deps.Inventory, logg))
		r.Get("/products/{productId}/reconcile", productcontrollers.Reconcile(deps.Inventory, logg))
	})

	return r
}
