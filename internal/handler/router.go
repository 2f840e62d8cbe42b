package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/edelweiss-storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if h.rateLimiter != nil {
				r.Use(h.rateLimiter.Middleware)
			}

			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/resend", h.Resend)
			r.Post("/verification/close", h.CloseVerification)

			r.Post("/recover", h.StartRecovery)
			r.Post("/recover/{flowID}/code", h.SubmitRecoveryCode)
			r.Post("/recover/{flowID}/password", h.SubmitRecoveryPassword)
			r.Post("/recover/{flowID}/back", h.RecoveryBack)

			r.With(h.authMiddleware.Middleware).Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/products", h.ListProducts)
			r.Get("/products/{id}", h.GetProduct)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddToCart)
			r.Patch("/cart/items/{id}", h.UpdateQuantity)
			r.Delete("/cart/items/{id}", h.RemoveFromCart)
			r.Post("/cart/selection/items/{id}", h.ToggleItem)
			r.Post("/cart/selection/shops/{shop}", h.ToggleShop)
			r.Post("/cart/selection/all", h.ToggleSelectAll)
			r.Post("/cart/promo", h.ApplyPromo)

			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.GetOrders)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/shops", h.CreateShop)

			r.Get("/addresses", h.ListAddresses)
			r.Post("/addresses", h.AddAddress)
			r.Get("/addresses/default", h.DefaultAddress)
			r.Put("/addresses/{id}", h.UpdateAddress)
			r.Delete("/addresses/{id}", h.DeleteAddress)
			r.Post("/addresses/{id}/default", h.SetDefaultAddress)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
