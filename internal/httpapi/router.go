package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CesValde/MongoCart/internal/web"
)

// NewRouter wires the full HTTP surface: the JSON API, the HTML views, the
// static assets and the SSE feed. The feed lives outside the timeout and
// compression middleware because it holds its connection open.
func NewRouter(products *ProductHandler, carts *CartHandler, live *LiveFeed, views *web.Views, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.Compress(5))

		r.Route("/api", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.List)
				r.Post("/", products.Create)
				r.Get("/{pid}", products.Get)
				r.Put("/{pid}", products.Replace)
				r.Delete("/{pid}", products.Delete)
			})

			r.Route("/carts", func(r chi.Router) {
				r.Get("/", carts.List)
				r.Post("/", carts.Create)
				r.Get("/{cid}", carts.Get)
				r.Put("/{cid}", carts.Replace)
				r.Delete("/{cid}", carts.Clear)
				r.Post("/{cid}/product/{pid}", carts.AddProduct)
				r.Put("/{cid}/products/{pid}", carts.SetQuantity)
				r.Delete("/{cid}/products/{pid}", carts.RemoveProduct)
			})
		})

		if views != nil {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/products", http.StatusFound)
			})
			r.Get("/products", views.Index)
			r.Get("/products/{pid}", views.ProductDetail)
			r.Get("/carts/{cid}", views.Cart)
			r.Get("/realtimeproducts", views.RealTime)
			r.Handle("/static/*", web.Static())
		}
	})

	if live != nil {
		r.Get("/live/products", live.Products)
	}

	return r
}
