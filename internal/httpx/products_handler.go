package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/products"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	List(ctx context.Context, f products.Filter, p products.Page) (*products.ListResult, error)
	Get(ctx context.Context, id int64, includeOutOfStock bool) (*products.Product, error)
	Create(ctx context.Context, in products.CreateInput) (*products.Product, error)
	Update(ctx context.Context, id int64, in products.UpdateInput) (*products.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductsHandler struct {
	Products ProductService
	Limiter  RateLimiter // nil disables throttling
	Log      *slog.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	list := http.Handler(http.HandlerFunc(h.list))
	if h.Limiter != nil {
		list = throttle(h.Limiter, h.Log)(list)
	}
	r.Method(http.MethodGet, "/", list)
	r.Get("/{id}/", h.get)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}/", h.update)
		r.Patch("/{id}/", h.update)
		r.Delete("/{id}/", h.delete)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := products.Filter{
		Name:     q.str("name"),
		PriceGTE: q.decimal("price__gte"),
		PriceLTE: q.decimal("price__lte"),
		StockGTE: q.int("stock__gte"),
		StockLTE: q.int("stock__lte"),
	}
	page := products.Page{}
	if n := q.int("page"); n != nil {
		page.Number = *n
	}
	if n := q.int("page_size"); n != nil {
		page.Size = *n
	}
	if !q.valid() {
		writeFields(w, q.errs)
		return
	}
	page = page.Normalize()

	res, err := h.Products.List(r.Context(), f, page)
	if err != nil {
		h.Log.Error("list products failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if page.Number > 1 && page.Offset() >= res.Count {
		writeError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	out := pageResp{Count: res.Count, Results: make([]productResp, 0, len(res.Items))}
	for i := range res.Items {
		out.Results = append(out.Results, toProduct(&res.Items[i]))
	}
	if page.Offset()+len(res.Items) < res.Count {
		out.Next = pageURL(r, page.Number+1)
	}
	if page.Number > 1 {
		out.Previous = pageURL(r, page.Number-1)
	}
	writeJSON(w, http.StatusOK, out)
}

// pageURL rewrites the request URL to point at another page; page 1 drops the parameter.
func pageURL(r *http.Request, n int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	v := r.URL.Query()
	if n <= 1 {
		v.Del("page")
	} else {
		v.Set("page", strconv.Itoa(n))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: v.Encode()}
	s := u.String()
	return &s
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	p, _ := auth.FromContext(r.Context())
	prod, err := h.Products.Get(r.Context(), id, p.IsAdmin)
	if err != nil {
		h.productError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(prod))
}

type productReq struct {
	Name  *string          `json:"name" validate:"omitnil,min=1,max=100"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock" validate:"omitnil,gte=0,lte=2147483647"`
}

func (req productReq) check(full bool) fieldErrors {
	fe := fieldErrors{}
	if full {
		if req.Name == nil {
			fe["name"] = "This field is required."
		}
		if req.Price == nil {
			fe["price"] = "This field is required."
		}
		if req.Stock == nil {
			fe["stock"] = "This field is required."
		}
	}
	switch {
	case req.Price == nil:
	case req.Price.IsNegative():
		fe["price"] = "Ensure this value is greater than or equal to 0."
	case tooLargeAmount(*req.Price):
		fe["price"] = maxAmountMessage
	}
	return fe
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if fe := req.check(true); len(fe) > 0 {
		writeFields(w, fe)
		return
	}
	p, err := h.Products.Create(r.Context(), products.CreateInput{Name: *req.Name, Price: *req.Price, Stock: *req.Stock})
	if err != nil {
		h.productError(w, err)
		return
	}
	h.Log.Info("product created", "product_id", p.ID)
	writeJSON(w, http.StatusCreated, toProduct(p))
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req productReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if fe := req.check(r.Method == http.MethodPut); len(fe) > 0 {
		writeFields(w, fe)
		return
	}
	p, err := h.Products.Update(r.Context(), id, products.UpdateInput{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		h.productError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		h.productError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) productError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, products.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, products.ErrInUse):
		writeError(w, http.StatusConflict, products.ErrInUse.Error())
	default:
		h.Log.Error("product request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
