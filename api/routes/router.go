package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rockettradeline/tradeline-backend/api/controllers"
	"github.com/rockettradeline/tradeline-backend/api/middleware"
	cartsvc "github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/pkg/config"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Params bundles everything the router mounts.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	DB     pinger
	Redis  *redis.Client
	PubSub pinger

	Carts      cartsvc.Service
	Payments   payments.Service
	Methods    paymentconfig.Service
	Tradelines *catalog.Repository
}

// NewRouter assembles the HTTP surface.
func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutLimit,
	)
	checkoutLimiter := middleware.RateLimit(checkoutPolicy, p.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"db":     p.DB,
			"redis":  p.Redis,
			"pubsub": p.PubSub,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog and method discovery are public reads.
		r.Get("/tradelines", controllers.TradelineList(p.Tradelines, logg))
		r.Get("/tradelines/{tradelineID}", controllers.TradelineGet(p.Tradelines, logg))
		r.Get("/payment-methods", controllers.PaymentMethodList(p.Methods, logg))
		r.Get("/payment-methods/{method}/quote", controllers.PaymentMethodQuote(p.Methods, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/cart", controllers.CartCurrent(p.Carts, logg))
			r.Get("/cart/history", controllers.CartHistory(p.Carts, logg))

			r.Route("/carts/{cartID}", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Carts, logg))
				r.Post("/items", controllers.CartAddItem(p.Carts, logg))
				r.Put("/items/{tradelineID}", controllers.CartSetItemQuantity(p.Carts, logg))
				r.Delete("/items/{tradelineID}", controllers.CartRemoveItem(p.Carts, logg))
				r.Post("/clear", controllers.CartClear(p.Carts, logg))
				r.Post("/discount", controllers.CartApplyDiscount(p.Carts, logg))
				r.Post("/payment-method", controllers.CartSetPaymentMethod(p.Carts, logg))
				r.Post("/extend", controllers.CartExtendExpiry(p.Carts, logg))
				r.Post("/cancel", controllers.CartCancel(p.Carts, logg))

				r.With(checkoutLimiter).Post("/checkout", controllers.Checkout(p.Payments, logg))
				r.With(checkoutLimiter).Post("/manual-payment", controllers.SubmitManualPayment(p.Payments, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", controllers.PaymentList(p.Payments, logg))
				r.Route("/{requestID}", func(r chi.Router) {
					r.Get("/", controllers.PaymentStatus(p.Payments, logg))
					r.Post("/process", controllers.ProcessInstantPayment(p.Payments, logg))
					r.Post("/p2p", controllers.ProcessP2PPayment(p.Payments, logg))
					r.Post("/cancel", controllers.PaymentCancel(p.Payments, logg))
				})
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))

		r.Get("/payments", controllers.AdminPaymentList(p.Payments, logg))
		r.Route("/payments/{requestID}", func(r chi.Router) {
			r.Post("/approve", controllers.AdminApproveManual(p.Payments, logg))
			r.Post("/settle", controllers.AdminSettleApproved(p.Payments, logg))
			r.Post("/verify", controllers.AdminVerifyPayment(p.Payments, logg))
		})

		r.Put("/payment-methods/{method}", controllers.AdminPaymentMethodUpsert(p.Methods, logg))
		r.Post("/tradelines", controllers.AdminTradelineCreate(p.Tradelines, logg))
	})

	return r
}
