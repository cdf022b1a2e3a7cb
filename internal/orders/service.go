package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/promos"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 2147483647")
	ErrAmountTooLarge     = errors.New("order total must be less than 100000000")
	ErrUnknownProduct     = errors.New("product does not exist")
	ErrInsufficientStock  = errors.New("Not enough stock for product")
	ErrInvalidPromo       = errors.New("Invalid promo code")
	ErrPromoNotApplicable = errors.New("Promo code is not valid")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotEditable        = errors.New("only pending orders can be modified")
	ErrForbidden          = errors.New("only admins can change order status")
)

// MaxQuantity bounds a single product's quantity in one order, matching the INTEGER stock column.
const MaxQuantity = math.MaxInt32

// Store is the persistence side of orders. Mutations happen through Tx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
}

type Tx interface {
	// LockProducts locks the given products FOR UPDATE in id order. Unknown ids are absent from the map.
	LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error)
	AdjustStock(ctx context.Context, productID int64, delta int) error
	// LockOrder loads an order with its items and locks the order row.
	LockOrder(ctx context.Context, id int64) (*Order, error)
	PromoUsed(ctx context.Context, userID, promoID, excludeOrderID int64) (bool, error)
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	ReplaceItems(ctx context.Context, orderID int64, items []Item) error
	DeleteOrder(ctx context.Context, id int64) error
}

type Promos interface {
	GetByCode(ctx context.Context, code string) (*promos.PromoCode, error)
	Get(ctx context.Context, id int64, admin bool) (*promos.PromoCode, error)
}

// Notifier is told about freshly placed orders (confirmation email).
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

// StockObserver is told whenever product stock changed.
type StockObserver interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	store    Store
	promos   Promos
	notifier Notifier
	stock    StockObserver
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, promos Promos, notifier Notifier, stock StockObserver, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		promos:   promos,
		notifier: notifier,
		stock:    stock,
		log:      log.With("component", "orders"),
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Order, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	promo, err := s.lookupPromo(ctx, in.CouponCode)
	if err != nil {
		return nil, err
	}

	var orderID int64
	err = s.store.InTx(ctx, func(tx Tx) error {
		items, err := reserve(ctx, tx, in.Items, nil)
		if err != nil {
			return err
		}
		o := &Order{UserID: userID, Status: StatusPending, Items: items}
		if promo != nil {
			if err := s.checkPromo(ctx, tx, promo, userID, 0); err != nil {
				return err
			}
			o.PromoCodeID = &promo.ID
		}
		o.Discount, o.TotalPrice = Totals(o.Items, promo)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stockChanged(ctx)

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order created", "order_id", o.ID, "user_id", userID, "total", o.TotalPrice.StringFixed(2))

	if s.notifier != nil {
		// email gagal di-enqueue tidak membatalkan order
		if err := s.notifier.OrderPlaced(ctx, o); err != nil {
			s.log.Error("enqueue order confirmation failed", "order_id", o.ID, "error", err)
		}
	}
	return o, nil
}

// Get returns the order if the viewer owns it or is an admin; otherwise ErrNotFound.
func (s *Service) Get(ctx context.Context, viewer auth.Principal, id int64) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(viewer, o) {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, viewer auth.Principal, f Filter) ([]Order, error) {
	if !viewer.IsAdmin {
		uid := viewer.UserID
		f.UserID = &uid
	}
	return s.store.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, viewer auth.Principal, id int64, in UpdateInput) (*Order, error) {
	if in.Items != nil {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if !viewer.IsAdmin {
			return nil, ErrForbidden
		}
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, *in.Status)
		}
	}
	newPromo, err := s.lookupPromo(ctx, in.CouponCode)
	if err != nil {
		return nil, err
	}

	stockTouched := false
	err = s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !canSee(viewer, o) {
			return ErrNotFound
		}

		editing := in.Items != nil || newPromo != nil
		if editing && o.Status != StatusPending {
			return ErrNotEditable
		}

		if in.Items != nil {
			items, err := reserve(ctx, tx, in.Items, o.Items)
			if err != nil {
				return err
			}
			if err := tx.ReplaceItems(ctx, o.ID, items); err != nil {
				return err
			}
			o.Items = items
			stockTouched = true
		}

		var promo *promos.PromoCode
		switch {
		case newPromo != nil && (o.PromoCodeID == nil || *o.PromoCodeID != newPromo.ID):
			if err := s.checkPromo(ctx, tx, newPromo, o.UserID, o.ID); err != nil {
				return err
			}
			o.PromoCodeID = &newPromo.ID
			promo = newPromo
		case o.PromoCodeID != nil:
			// promo yang sudah terpasang tidak divalidasi ulang
			promo, err = s.promos.Get(ctx, *o.PromoCodeID, true)
			if errors.Is(err, promos.ErrNotFound) {
				o.PromoCodeID, promo = nil, nil
			} else if err != nil {
				return err
			}
		}
		o.Discount, o.TotalPrice = Totals(o.Items, promo)

		if in.Status != nil && *in.Status != o.Status {
			if !CanTransition(o.Status, *in.Status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, *in.Status)
			}
			if *in.Status == StatusCancelled {
				if err := restock(ctx, tx, o.Items); err != nil {
					return err
				}
				stockTouched = true
			}
			o.Status = *in.Status
		}
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	if stockTouched {
		s.stockChanged(ctx)
	}
	return s.store.Get(ctx, id)
}

// Delete returns the items to stock (unless the order was already cancelled) and removes the order.
func (s *Service) Delete(ctx context.Context, viewer auth.Principal, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !canSee(viewer, o) {
			return ErrNotFound
		}
		if o.Status != StatusCancelled {
			if err := restock(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		return tx.DeleteOrder(ctx, o.ID)
	})
	if err != nil {
		return err
	}
	s.stockChanged(ctx)
	s.log.Info("order deleted", "order_id", id, "by", viewer.UserID)
	return nil
}

func (s *Service) lookupPromo(ctx context.Context, code string) (*promos.PromoCode, error) {
	if code == "" {
		return nil, nil
	}
	p, err := s.promos.GetByCode(ctx, code)
	if errors.Is(err, promos.ErrNotFound) {
		return nil, ErrInvalidPromo
	}
	return p, err
}

// checkPromo: aktif, dalam window, dan belum pernah dipakai user di order lain.
func (s *Service) checkPromo(ctx context.Context, tx Tx, p *promos.PromoCode, userID, orderID int64) error {
	if !p.ActiveAt(s.now()) {
		return ErrPromoNotApplicable
	}
	used, err := tx.PromoUsed(ctx, userID, p.ID, orderID)
	if err != nil {
		return err
	}
	if used {
		return ErrPromoNotApplicable
	}
	return nil
}

func (s *Service) stockChanged(ctx context.Context) {
	if s.stock != nil {
		s.stock.Invalidate(ctx)
	}
}

func canSee(viewer auth.Principal, o *Order) bool {
	return viewer.IsAdmin || o.UserID == viewer.UserID
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	perProduct := map[int64]int64{}
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return ErrInvalidQuantity
		}
		perProduct[it.ProductID] += int64(it.Quantity)
		if perProduct[it.ProductID] > MaxQuantity {
			return fmt.Errorf("%w: product %d", ErrInvalidQuantity, it.ProductID)
		}
	}
	return nil
}

// reserve returns the previous items to stock, then takes stock for the new ones.
// All touched products are locked first, in id order, so concurrent orders cannot deadlock.
func reserve(ctx context.Context, tx Tx, in []ItemInput, previous []Item) ([]Item, error) {
	delta := map[int64]int{}
	for _, it := range previous {
		delta[it.ProductID] += it.Quantity
	}
	for _, it := range in {
		delta[it.ProductID] -= it.Quantity
	}

	locked, err := tx.LockProducts(ctx, sortedIDs(delta))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(in))
	for _, it := range in {
		p, ok := locked[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, it.ProductID)
		}
		items = append(items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price.Mul(decimalInt(it.Quantity)),
		})
	}
	if Subtotal(items).GreaterThanOrEqual(MaxAmount) {
		return nil, ErrAmountTooLarge
	}
	for id, d := range delta {
		p, ok := locked[id]
		if !ok {
			// produk lama sudah tidak ada; tidak ada stok untuk dikembalikan
			continue
		}
		if p.Stock+d < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
	}
	for _, id := range sortedIDs(delta) {
		if _, ok := locked[id]; !ok || delta[id] == 0 {
			continue
		}
		if err := tx.AdjustStock(ctx, id, delta[id]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func restock(ctx context.Context, tx Tx, items []Item) error {
	delta := map[int64]int{}
	for _, it := range items {
		delta[it.ProductID] += it.Quantity
	}
	for _, id := range sortedIDs(delta) {
		if err := tx.AdjustStock(ctx, id, delta[id]); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
