// Package web serves the HTML views: the paginated product listing, product
// detail, a single cart, and the live-updating product page backed by the
// SSE feed. Templates and static assets ship inside the binary.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const renderTimeout = 10 * time.Second

type Views struct {
	catalog *service.CatalogService
	carts   *service.CartService
	tmpl    *template.Template
}

func New(catalog *service.CatalogService, carts *service.CartService) (*Views, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Views{catalog: catalog, carts: carts, tmpl: tmpl}, nil
}

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	return http.FileServer(http.FS(staticFS))
}

type indexData struct {
	Products []domain.Product
	Page     *service.ProductPage
	PrevLink string
	NextLink string
}

func (v *Views) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := v.tmpl.ExecuteTemplate(w, name, data); err != nil {
		logrus.WithError(err).WithField("template", name).Error("render failed")
	}
}

func (v *Views) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := v.tmpl.ExecuteTemplate(w, "error.html", message); err != nil {
		logrus.WithError(err).Error("render failed")
	}
}

// Index is the paginated product listing.
func (v *Views) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	pageNum, _ := strconv.Atoi(q.Get("page"))

	page, err := v.catalog.List(ctx, service.ListQuery{
		Limit:    limit,
		Page:     pageNum,
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Query:    q.Get("query"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		v.renderError(w, http.StatusInternalServerError, "could not load products")
		return
	}

	data := indexData{Products: page.Payload, Page: page}
	if page.PrevPage != nil {
		data.PrevLink = PageLink(r, *page.PrevPage)
	}
	if page.NextPage != nil {
		data.NextLink = PageLink(r, *page.NextPage)
	}
	v.render(w, "index.html", data)
}

// PageLink rebuilds the request URL pointing at another page, keeping every
// other query parameter intact. Shared by the HTML views and the JSON
// listing's prev/next links.
func PageLink(r *http.Request, page int) string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// ProductDetail shows one product with an add-to-cart button.
func (v *Views) ProductDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	product, err := v.catalog.Get(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		if service.IsNotFound(err) || service.IsValidation(err) {
			v.renderError(w, http.StatusNotFound, "product not found")
			return
		}
		v.renderError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	v.render(w, "product.html", product)
}

type cartItemView struct {
	Product  *domain.Product
	Ref      string
	Quantity int
}

type cartData struct {
	ID    string
	Items []cartItemView
}

// Cart shows the products belonging to one cart. Items whose product was
// deleted keep their raw reference.
func (v *Views) Cart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	cart, err := v.carts.GetResolved(ctx, chi.URLParam(r, "cid"))
	if err != nil {
		if service.IsNotFound(err) || service.IsValidation(err) {
			v.renderError(w, http.StatusNotFound, "cart not found")
			return
		}
		v.renderError(w, http.StatusInternalServerError, "could not load cart")
		return
	}

	data := cartData{ID: cart.ID.Hex()}
	for _, item := range cart.Products {
		view := cartItemView{Quantity: item.Quantity}
		switch p := item.Product.(type) {
		case domain.Product:
			view.Product = &p
			view.Ref = p.ID.Hex()
		case primitive.ObjectID:
			view.Ref = p.Hex()
		}
		data.Items = append(data.Items, view)
	}
	v.render(w, "cart.html", data)
}

// RealTime is the live product page; its script subscribes to the SSE feed
// and re-renders the list on every broadcast.
func (v *Views) RealTime(w http.ResponseWriter, r *http.Request) {
	v.render(w, "realtime.html", nil)
}
