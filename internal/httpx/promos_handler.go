package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PromoService interface {
	List(ctx context.Context, f promos.Filter, admin bool) ([]promos.PromoCode, error)
	Get(ctx context.Context, id int64, admin bool) (*promos.PromoCode, error)
	Create(ctx context.Context, in promos.Input) (*promos.PromoCode, error)
	Update(ctx context.Context, id int64, in promos.Patch) (*promos.PromoCode, error)
	Delete(ctx context.Context, id int64) error
}

type PromosHandler struct {
	Promos PromoService
	Log    *slog.Logger
}

func (h *PromosHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}/", h.get)
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}/", h.update)
		r.Patch("/{id}/", h.update)
		r.Delete("/{id}/", h.delete)
	})
}

func (h *PromosHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := promos.Filter{
		Code:           q.str("coupon_code"),
		Name:           q.str("coupon_name"),
		Type:           promos.Type(q.str("type")),
		FixedAmountGTE: q.decimal("fixed_amount__gte"),
		FixedAmountLTE: q.decimal("fixed_amount__lte"),
		StartAtGTE:     q.time("start_at__gte"),
		StartAtLTE:     q.time("start_at__lte"),
		EndedAtGTE:     q.time("ended_at__gte"),
		EndedAtLTE:     q.time("ended_at__lte"),
		IsActive:       q.bool("is_active"),
	}
	if !q.valid() {
		writeFields(w, q.errs)
		return
	}
	p, _ := auth.FromContext(r.Context())
	list, err := h.Promos.List(r.Context(), f, p.IsAdmin)
	if err != nil {
		h.promoError(w, err)
		return
	}
	out := make([]promoResp, 0, len(list))
	for i := range list {
		out = append(out, toPromo(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PromosHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	p, _ := auth.FromContext(r.Context())
	promo, err := h.Promos.Get(r.Context(), id, p.IsAdmin)
	if err != nil {
		h.promoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromo(promo))
}

type promoReq struct {
	Code               *string     `json:"coupon_code" validate:"omitnil,min=1,max=20"`
	Name               *string     `json:"coupon_name" validate:"omitnil,min=1,max=100"`
	Type               *string     `json:"type" validate:"omitnil,oneof=FIXED PERCENTAGE"`
	StartAt            *string     `json:"start_at"`
	EndedAt            *string     `json:"ended_at"`
	FixedAmount        nullDecimal `json:"fixed_amount"`
	DiscountPercentage nullDecimal `json:"discount_percentage"`
	MaxDiscountAmount  nullDecimal `json:"max_discount_amount"`
	IsActive           *bool       `json:"is_active"`
}

// nullDecimal tells an absent key apart from an explicit null, which clears the field.
type nullDecimal struct {
	Set   bool
	Value *decimal.Decimal
}

func (n *nullDecimal) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	n.Value = &d
	return nil
}

// times parses start_at/ended_at; required on full writes.
func (req promoReq) times(full bool) (start, end *time.Time, fe fieldErrors) {
	fe = fieldErrors{}
	parse := func(field string, s *string) *time.Time {
		if s == nil {
			if full {
				fe[field] = "This field is required."
			}
			return nil
		}
		t, err := parseTime(*s)
		if err != nil {
			fe[field] = "Datetime has wrong format."
			return nil
		}
		return &t
	}
	start = parse("start_at", req.StartAt)
	end = parse("ended_at", req.EndedAt)
	if full {
		for field, v := range map[string]*string{"coupon_code": req.Code, "coupon_name": req.Name, "type": req.Type} {
			if v == nil {
				fe[field] = "This field is required."
			}
		}
	}
	return start, end, fe
}

func (h *PromosHandler) create(w http.ResponseWriter, r *http.Request) {
	var req promoReq
	if !decodeJSON(w, r, &req) {
		return
	}
	start, end, fe := req.times(true)
	if len(fe) > 0 {
		writeFields(w, fe)
		return
	}
	p, err := h.Promos.Create(r.Context(), promos.Input{
		Code:               *req.Code,
		Name:               *req.Name,
		Type:               promos.Type(*req.Type),
		StartAt:            *start,
		EndedAt:            *end,
		FixedAmount:        req.FixedAmount.Value,
		DiscountPercentage: req.DiscountPercentage.Value,
		MaxDiscountAmount:  req.MaxDiscountAmount.Value,
		IsActive:           req.IsActive,
	})
	if err != nil {
		h.promoError(w, err)
		return
	}
	h.Log.Info("promo code created", "promo_id", p.ID, "code", p.Code)
	writeJSON(w, http.StatusCreated, toPromo(p))
}

func (h *PromosHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req promoReq
	if !decodeJSON(w, r, &req) {
		return
	}
	start, end, fe := req.times(r.Method == http.MethodPut)
	if len(fe) > 0 {
		writeFields(w, fe)
		return
	}
	patch := promos.Patch{
		Code:               req.Code,
		Name:               req.Name,
		StartAt:            start,
		EndedAt:            end,
		FixedAmount:        promos.NullableAmount(req.FixedAmount),
		DiscountPercentage: promos.NullableAmount(req.DiscountPercentage),
		MaxDiscountAmount:  promos.NullableAmount(req.MaxDiscountAmount),
		IsActive:           req.IsActive,
	}
	if req.Type != nil {
		t := promos.Type(*req.Type)
		patch.Type = &t
	}
	p, err := h.Promos.Update(r.Context(), id, patch)
	if err != nil {
		h.promoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromo(p))
}

func (h *PromosHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := h.Promos.Delete(r.Context(), id); err != nil {
		h.promoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PromosHandler) promoError(w http.ResponseWriter, err error) {
	var fe *promos.FieldError
	switch {
	case errors.As(err, &fe):
		writeFields(w, fieldErrors{fe.Field: fe.Message})
	case errors.Is(err, promos.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, promos.ErrCodeTaken):
		writeFields(w, fieldErrors{"coupon_code": promos.ErrCodeTaken.Error()})
	default:
		h.Log.Error("promo request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
