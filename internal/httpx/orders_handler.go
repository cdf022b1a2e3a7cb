package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	Create(ctx context.Context, userID int64, in orders.CreateInput) (*orders.Order, error)
	Get(ctx context.Context, viewer auth.Principal, id int64) (*orders.Order, error)
	List(ctx context.Context, viewer auth.Principal, f orders.Filter) ([]orders.Order, error)
	Update(ctx context.Context, viewer auth.Principal, id int64, in orders.UpdateInput) (*orders.Order, error)
	Delete(ctx context.Context, viewer auth.Principal, id int64) error
}

type OrdersHandler struct {
	Orders OrderService
	Log    *slog.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Use(requireAuth)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}/", h.get)
	r.Put("/{id}/", h.update)
	r.Patch("/{id}/", h.update)
	r.Delete("/{id}/", h.delete)
}

type orderItemReq struct {
	Product  int64 `json:"product" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gte=1,lte=2147483647"`
}

type createOrderReq struct {
	Items      []orderItemReq `json:"items" validate:"required,min=1,dive"`
	CouponCode string         `json:"coupon_code"`
}

type updateOrderReq struct {
	Items      []orderItemReq `json:"items" validate:"omitnil,min=1,dive"`
	CouponCode string         `json:"coupon_code"`
	Status     string         `json:"status" validate:"omitempty,oneof=PENDING SHIPPED DELIVERED CANCELLED"`
}

func itemInputs(in []orderItemReq) []orders.ItemInput {
	if in == nil {
		return nil
	}
	out := make([]orders.ItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, orders.ItemInput{ProductID: it.Product, Quantity: it.Quantity})
	}
	return out
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := orders.Filter{
		TotalGTE:    q.decimal("total_price__gte"),
		TotalLTE:    q.decimal("total_price__lte"),
		DiscountGTE: q.decimal("discount__gte"),
		DiscountLTE: q.decimal("discount__lte"),
		CreatedGTE:  q.time("created_at__gte"),
		CreatedLTE:  q.time("created_at__lte"),
		CouponCode:  q.str("promo_code"),
		UserEmail:   q.str("user_email"),
		UserID:      q.int64("user"),
		Status:      orders.Status(strings.ToUpper(q.str("status"))),
	}
	if !q.valid() {
		writeFields(w, q.errs)
		return
	}
	viewer, _ := auth.FromContext(r.Context())
	list, err := h.Orders.List(r.Context(), viewer, f)
	if err != nil {
		h.orderError(w, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for i := range list {
		out = append(out, toOrder(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	viewer, _ := auth.FromContext(r.Context())
	o, err := h.Orders.Create(r.Context(), viewer.UserID, orders.CreateInput{
		Items:      itemInputs(req.Items),
		CouponCode: strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	viewer, _ := auth.FromContext(r.Context())
	o, err := h.Orders.Get(r.Context(), viewer, id)
	if err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *OrdersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req updateOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	in := orders.UpdateInput{
		Items:      itemInputs(req.Items),
		CouponCode: strings.TrimSpace(req.CouponCode),
	}
	if req.Status != "" {
		st := orders.Status(req.Status)
		in.Status = &st
	}
	viewer, _ := auth.FromContext(r.Context())
	o, err := h.Orders.Update(r.Context(), viewer, id, in)
	if err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	viewer, _ := auth.FromContext(r.Context())
	if err := h.Orders.Delete(r.Context(), viewer, id); err != nil {
		h.orderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) orderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, orders.ErrNoItems), errors.Is(err, orders.ErrInvalidQuantity):
		writeFields(w, fieldErrors{"items": err.Error()})
	case errors.Is(err, orders.ErrUnknownProduct), errors.Is(err, orders.ErrAmountTooLarge):
		writeFields(w, fieldErrors{"items": err.Error()})
	case errors.Is(err, orders.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, orders.ErrInsufficientStock.Error())
	case errors.Is(err, orders.ErrInvalidPromo):
		writeError(w, http.StatusBadRequest, orders.ErrInvalidPromo.Error())
	case errors.Is(err, orders.ErrPromoNotApplicable):
		writeError(w, http.StatusBadRequest, orders.ErrPromoNotApplicable.Error())
	case errors.Is(err, orders.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrNotEditable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error("order request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
