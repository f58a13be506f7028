package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx/middlewares"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
)

// NewRouter mounts the API under /api. idem may be nil to disable
// idempotent order creation.
func NewRouter(handler *Handler, idem cache.Cache, idemTTL time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", handler.CreateProduct)
			r.Get("/", handler.ListProducts)
			r.Get("/{code}", handler.GetProduct)
			r.Put("/{code}", handler.UpdateProduct)
			r.Delete("/{code}", handler.DeleteProduct)
		})
		r.Route("/orders", func(r chi.Router) {
			r.With(middlewares.Idempotency(idem, "create-order", idemTTL)).Post("/", handler.CreateOrder)
			r.Get("/", handler.ListOrders)
			r.Get("/{code}", handler.GetOrder)
			r.Put("/{code}", handler.UpdateOrder)
			r.Delete("/{code}", handler.DeleteOrder)
			r.Get("/{code}/order-items", handler.ListOrderItemsOfOrder)
		})
		r.Route("/order-items", func(r chi.Router) {
			r.Post("/", handler.CreateOrderItem)
			r.Get("/", handler.ListOrderItems)
			r.Get("/{code}", handler.GetOrderItem)
			r.Put("/{code}", handler.UpdateOrderItem)
			r.Delete("/{code}", handler.DeleteOrderItem)
		})
	})
	return r
}
