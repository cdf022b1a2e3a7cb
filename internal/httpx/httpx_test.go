package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/orders"
	"github.com/ariefcatur/go-order-processing/internal/products"
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/ariefcatur/go-order-processing/internal/users"
	"github.com/shopspring/decimal"
)

// ---- fakes ----

type fakeUsers struct {
	byID map[int64]*users.User
}

func (f *fakeUsers) Register(_ context.Context, in users.RegisterInput) (*users.User, error) {
	if in.Password1 != in.Password2 {
		return nil, users.ErrPasswordMismatch
	}
	if len(in.Password1) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("hash password: %w", auth.ErrPasswordTooLong)
	}
	for _, u := range f.byID {
		if u.Email == in.Email {
			return nil, users.ErrEmailTaken
		}
	}
	u := &users.User{ID: int64(len(f.byID) + 1), Email: in.Email, FirstName: in.FirstName, DateOfBirth: in.DateOfBirth, IsActive: true}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*users.User, error) {
	for _, u := range f.byID {
		if u.Email == email && password == "secret123" && u.IsActive {
			return u, nil
		}
	}
	return nil, users.ErrInvalidCredentials
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, actorID, id int64, in users.UpdateInput) (*users.User, error) {
	if actorID != id {
		return nil, users.ErrForbidden
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	return u, nil
}

func (f *fakeUsers) List(context.Context, users.Filter) ([]users.User, error) {
	out := []users.User{}
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

type fakeProducts struct {
	items   []products.Product
	lastF   products.Filter
	lastP   products.Page
	deleted int64
}

func (f *fakeProducts) List(_ context.Context, fl products.Filter, p products.Page) (*products.ListResult, error) {
	f.lastF, f.lastP = fl, p
	end := p.Offset() + p.Size
	if end > len(f.items) {
		end = len(f.items)
	}
	var page []products.Product
	if p.Offset() < len(f.items) {
		page = f.items[p.Offset():end]
	}
	return &products.ListResult{Count: len(f.items), Items: page}, nil
}

func (f *fakeProducts) Get(_ context.Context, id int64, includeOutOfStock bool) (*products.Product, error) {
	for i := range f.items {
		if f.items[i].ID == id && (f.items[i].Stock > 0 || includeOutOfStock) {
			return &f.items[i], nil
		}
	}
	return nil, products.ErrNotFound
}

func (f *fakeProducts) Create(_ context.Context, in products.CreateInput) (*products.Product, error) {
	p := products.Product{ID: int64(len(f.items) + 1), Name: in.Name, Price: in.Price, Stock: in.Stock}
	f.items = append(f.items, p)
	return &p, nil
}

func (f *fakeProducts) Update(context.Context, int64, products.UpdateInput) (*products.Product, error) {
	return nil, products.ErrNotFound
}

func (f *fakeProducts) Delete(_ context.Context, id int64) error {
	if id == 99 {
		return fmt.Errorf("delete product %d: %w", id, products.ErrInUse)
	}
	f.deleted = id
	return nil
}

type fakePromos struct {
	lastAdmin bool
	created   *promos.Input
	lastPatch promos.Patch
}

func (f *fakePromos) List(_ context.Context, _ promos.Filter, admin bool) ([]promos.PromoCode, error) {
	f.lastAdmin = admin
	return nil, nil
}

func (f *fakePromos) Get(context.Context, int64, bool) (*promos.PromoCode, error) {
	return nil, promos.ErrNotFound
}

func (f *fakePromos) Create(_ context.Context, in promos.Input) (*promos.PromoCode, error) {
	f.created = &in
	p := &promos.PromoCode{ID: 1, Code: in.Code, Name: in.Name, Type: in.Type, StartAt: in.StartAt, EndedAt: in.EndedAt, FixedAmount: in.FixedAmount, IsActive: true}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakePromos) Update(_ context.Context, id int64, in promos.Patch) (*promos.PromoCode, error) {
	f.lastPatch = in
	if in.Code != nil && *in.Code == "DUP" {
		return nil, promos.ErrCodeTaken
	}
	return &promos.PromoCode{ID: id, Code: "PCT", Type: promos.TypePercentage, DiscountPercentage: in.DiscountPercentage.Value,
		MaxDiscountAmount: in.MaxDiscountAmount.Value, IsActive: true}, nil
}

func (f *fakePromos) Delete(context.Context, int64) error { return nil }

type fakeOrders struct {
	createErr error
	updateErr error
	lastIn    orders.CreateInput
	lastView  auth.Principal
	order     *orders.Order
}

func (f *fakeOrders) Create(_ context.Context, userID int64, in orders.CreateInput) (*orders.Order, error) {
	f.lastIn = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	o := *f.order
	o.UserID = userID
	return &o, nil
}

func (f *fakeOrders) Get(_ context.Context, viewer auth.Principal, id int64) (*orders.Order, error) {
	f.lastView = viewer
	if id != f.order.ID || (!viewer.IsAdmin && viewer.UserID != f.order.UserID) {
		return nil, orders.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeOrders) List(_ context.Context, viewer auth.Principal, _ orders.Filter) ([]orders.Order, error) {
	f.lastView = viewer
	return []orders.Order{*f.order}, nil
}

func (f *fakeOrders) Update(context.Context, auth.Principal, int64, orders.UpdateInput) (*orders.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.order, nil
}

func (f *fakeOrders) Delete(context.Context, auth.Principal, int64) error { return nil }

type fakeLimiter struct{ allow bool }

func (l fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.allow, 1500 * time.Millisecond, nil
}

// ---- harness ----

type harness struct {
	t        *testing.T
	srv      http.Handler
	tokens   *auth.Manager
	users    *fakeUsers
	products *fakeProducts
	promos   *fakePromos
	orders   *fakeOrders
}

func newHarness(t *testing.T, limiter RateLimiter) *harness {
	t.Helper()
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	h := &harness{
		t:      t,
		tokens: auth.NewManager("test-secret", time.Minute, time.Hour),
		users: &fakeUsers{byID: map[int64]*users.User{
			1: {ID: 1, Email: "admin@example.com", IsStaff: true, IsActive: true},
			2: {ID: 2, Email: "jane@example.com", FirstName: "Jane", DateOfBirth: &dob, IsActive: true},
			3: {ID: 3, Email: "gone@example.com", IsActive: false},
		}},
		products: &fakeProducts{},
		promos:   &fakePromos{},
		orders: &fakeOrders{order: &orders.Order{
			ID:         10,
			UserID:     2,
			User:       users.User{ID: 2, Email: "jane@example.com", FirstName: "Jane", DateOfBirth: &dob},
			Status:     orders.StatusPending,
			TotalPrice: decimal.RequireFromString("90"),
			Discount:   decimal.RequireFromString("10"),
			CouponCode: "SAVE10",
			Items: []orders.Item{
				{ID: 100, ProductID: 5, ProductName: "Laptop", Quantity: 2, Price: decimal.RequireFromString("100")},
			},
		}},
	}
	for i := 1; i <= 25; i++ {
		h.products.items = append(h.products.items, products.Product{
			ID: int64(i), Name: fmt.Sprintf("p%d", i), Price: decimal.NewFromFloat(9.5), Stock: i,
		})
	}
	h.srv = NewRouter(Deps{
		Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens:          h.tokens,
		Users:           h.users,
		Products:        h.products,
		Promos:          h.promos,
		Orders:          h.orders,
		ProductsLimiter: limiter,
		Health:          map[string]Pinger{"postgres": PingFunc(func(context.Context) error { return nil })},
	})
	return h
}

func (h *harness) token(userID int64) string {
	h.t.Helper()
	u := h.users.byID[userID]
	tok, err := h.tokens.IssueAccess(auth.Subject{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin()})
	if err != nil {
		h.t.Fatal(err)
	}
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	if rec := h.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	down := NewRouter(Deps{
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: h.tokens,
		Health: map[string]Pinger{"redis": PingFunc(func(context.Context) error { return errors.New("refused") })},
	})
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTokenFlow(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/user/token/", "", map[string]string{"email": "jane@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials: status = %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/user/token/", "", map[string]string{"email": "jane@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d body=%s", rec.Code, rec.Body)
	}
	pair := decode[auth.TokenPair](t, rec)
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("pair = %+v", pair)
	}

	// access token cannot be used as refresh token
	rec = h.do(http.MethodPost, "/api/user/token/refresh/", "", map[string]string{"refresh": pair.Access})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status = %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/user/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d", rec.Code)
	}
	out := decode[map[string]string](t, rec)
	claims, err := h.tokens.Parse(out["access"], auth.TokenAccess)
	if err != nil || claims.Email != "jane@example.com" {
		t.Fatalf("refreshed access token: %v %+v", err, claims)
	}

	// refresh for a deactivated user is refused
	inactive, _ := h.tokens.IssuePair(auth.Subject{UserID: 3, Email: "gone@example.com"})
	rec = h.do(http.MethodPost, "/api/user/token/refresh/", "", map[string]string{"refresh": inactive.Refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive refresh: status = %d", rec.Code)
	}
}

func TestBadBearerToken(t *testing.T) {
	h := newHarness(t, nil)
	if rec := h.do(http.MethodGet, "/api/products/", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateUser(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct {
		name      string
		body      map[string]string
		wantCode  int
		wantField string
	}{
		{
			name:     "ok",
			body:     map[string]string{"email": "new@example.com", "password1": "abcde", "password2": "abcde", "date_of_birth": "2000-01-02"},
			wantCode: http.StatusCreated,
		},
		{
			name:      "short password",
			body:      map[string]string{"email": "x@example.com", "password1": "abc", "password2": "abc"},
			wantCode:  http.StatusBadRequest,
			wantField: "password1",
		},
		{
			name:      "password over 72 characters",
			body:      map[string]string{"email": "long@example.com", "password1": strings.Repeat("a", 80), "password2": strings.Repeat("a", 80)},
			wantCode:  http.StatusBadRequest,
			wantField: "password1",
		},
		{
			name:      "password over 72 bytes",
			body:      map[string]string{"email": "wide@example.com", "password1": strings.Repeat("€", 30), "password2": strings.Repeat("€", 30)},
			wantCode:  http.StatusBadRequest,
			wantField: "password1",
		},
		{
			name:      "mismatch",
			body:      map[string]string{"email": "y@example.com", "password1": "abcde", "password2": "abcdf"},
			wantCode:  http.StatusBadRequest,
			wantField: "password2",
		},
		{
			name:      "duplicate",
			body:      map[string]string{"email": "jane@example.com", "password1": "abcde", "password2": "abcde"},
			wantCode:  http.StatusBadRequest,
			wantField: "email",
		},
		{
			name:      "bad date",
			body:      map[string]string{"email": "z@example.com", "password1": "abcde", "password2": "abcde", "date_of_birth": "02/01/2000"},
			wantCode:  http.StatusBadRequest,
			wantField: "date_of_birth",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/user/create/", "", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
			}
			if tt.wantField != "" {
				out := decode[struct {
					Fields map[string]string `json:"fields"`
				}](t, rec)
				if _, ok := out.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %q", out.Fields, tt.wantField)
				}
				return
			}
			if strings.Contains(rec.Body.String(), "password") {
				t.Errorf("response leaks password: %s", rec.Body)
			}
			if !strings.Contains(rec.Body.String(), `"date_of_birth":"2000-01-02"`) {
				t.Errorf("date_of_birth not rendered as date: %s", rec.Body)
			}
		})
	}
}

func TestUpdateUser_SelfOnly(t *testing.T) {
	h := newHarness(t, nil)
	jane := h.token(2)

	if rec := h.do(http.MethodPatch, "/api/user/update/1/", jane, map[string]string{"first_name": "X"}); rec.Code != http.StatusForbidden {
		t.Fatalf("other user: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/user/update/1/", jane, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("get other user: status = %d", rec.Code)
	}
	rec := h.do(http.MethodPatch, "/api/user/update/2/", jane, map[string]string{"first_name": "Janet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("self: status = %d body=%s", rec.Code, rec.Body)
	}
	if h.users.byID[2].FirstName != "Janet" {
		t.Errorf("first name not updated")
	}
	if rec := h.do(http.MethodPatch, "/api/user/update/2/", jane, map[string]string{"password1": "abc", "password2": "abc"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("short password: status = %d", rec.Code)
	}
	long := strings.Repeat("x", 73)
	if rec := h.do(http.MethodPatch, "/api/user/update/2/", jane, map[string]string{"password1": long, "password2": long}); rec.Code != http.StatusBadRequest {
		t.Fatalf("long password: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPatch, "/api/user/update/2/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}
}

func TestUserList_AdminOnly(t *testing.T) {
	h := newHarness(t, nil)
	if rec := h.do(http.MethodGet, "/api/user/list/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/user/list/", h.token(2), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("regular user: status = %d", rec.Code)
	}
	rec := h.do(http.MethodGet, "/api/user/list/?is_active=true", h.token(1), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d", rec.Code)
	}
	if got := decode[[]map[string]any](t, rec); len(got) != 3 {
		t.Errorf("got %d users", len(got))
	}
	if rec := h.do(http.MethodGet, "/api/user/list/?is_active=maybe", h.token(1), nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad bool: status = %d", rec.Code)
	}
}

func TestProductList_Pagination(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/products/?page=2&page_size=10&name=p&price__gte=1.5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	out := decode[pageResp](t, rec)
	if out.Count != 25 || len(out.Results) != 10 {
		t.Fatalf("count=%d results=%d", out.Count, len(out.Results))
	}
	if out.Results[0].Price != "9.50" {
		t.Errorf("price = %q", out.Results[0].Price)
	}
	if out.Next == nil || !strings.Contains(*out.Next, "page=3") {
		t.Errorf("next = %v", out.Next)
	}
	if out.Previous == nil || strings.Contains(*out.Previous, "page=") {
		t.Errorf("previous = %v", out.Previous)
	}
	if h.products.lastF.Name != "p" || h.products.lastF.PriceGTE == nil || !h.products.lastF.PriceGTE.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("filter = %+v", h.products.lastF)
	}

	rec = h.do(http.MethodGet, "/api/products/?page=3", "", nil)
	last := decode[pageResp](t, rec)
	if last.Next != nil || len(last.Results) != 5 {
		t.Errorf("last page: next=%v results=%d", last.Next, len(last.Results))
	}

	if rec := h.do(http.MethodGet, "/api/products/?page=9", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("page past the end: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/products/?page_size=1000", "", nil); rec.Code != http.StatusOK || h.products.lastP.Size != products.MaxPageSize {
		t.Errorf("page size not capped: %d", h.products.lastP.Size)
	}
	if rec := h.do(http.MethodGet, "/api/products/?stock__gte=lots", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter: status = %d", rec.Code)
	}
}

func TestProductList_Throttled(t *testing.T) {
	h := newHarness(t, fakeLimiter{allow: false})
	rec := h.do(http.MethodGet, "/api/products/", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q", got)
	}
	// detail is not throttled
	if rec := h.do(http.MethodGet, "/api/products/1/", "", nil); rec.Code != http.StatusOK {
		t.Errorf("detail: status = %d", rec.Code)
	}
}

func TestProductWrites(t *testing.T) {
	h := newHarness(t, nil)
	body := map[string]any{"name": "Keyboard", "price": "49.9", "stock": 3}

	if rec := h.do(http.MethodPost, "/api/products/", h.token(2), body); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin create: status = %d", rec.Code)
	}
	rec := h.do(http.MethodPost, "/api/products/", h.token(1), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status = %d body=%s", rec.Code, rec.Body)
	}
	if p := decode[productResp](t, rec); p.Price != "49.90" || p.Stock != 3 {
		t.Errorf("created = %+v", p)
	}

	if rec := h.do(http.MethodPost, "/api/products/", h.token(1), map[string]any{"name": "x", "price": "-1", "stock": 1}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative price: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/api/products/", h.token(1), map[string]any{"name": "x", "price": "1", "stock": -1}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative stock: status = %d", rec.Code)
	}

	bounds := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{name: "name over 100 characters", body: map[string]any{"name": strings.Repeat("n", 101), "price": "1", "stock": 1}, field: "name"},
		{name: "price over 8 integer digits", body: map[string]any{"name": "x", "price": "100000000", "stock": 1}, field: "price"},
		{name: "price rounding into overflow", body: map[string]any{"name": "x", "price": "99999999.999", "stock": 1}, field: "price"},
		{name: "stock above int32", body: map[string]any{"name": "x", "price": "1", "stock": 1 << 31}, field: "stock"},
	}
	for _, tt := range bounds {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/products/", h.token(1), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
			}
			out := decode[struct {
				Fields map[string]string `json:"fields"`
			}](t, rec)
			if _, ok := out.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", out.Fields, tt.field)
			}
		})
	}
	if rec := h.do(http.MethodPatch, "/api/products/4/", h.token(1), map[string]any{"price": "123456789.00"}); rec.Code != http.StatusBadRequest {
		t.Errorf("patch huge price: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/api/products/", h.token(1), map[string]any{"name": strings.Repeat("n", 100), "price": "99999999.99", "stock": 1}); rec.Code != http.StatusCreated {
		t.Errorf("largest valid product: status = %d body=%s", rec.Code, rec.Body)
	}

	if rec := h.do(http.MethodDelete, "/api/products/99/", h.token(1), nil); rec.Code != http.StatusConflict {
		t.Errorf("delete referenced product: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/products/4/", h.token(1), nil); rec.Code != http.StatusNoContent || h.products.deleted != 4 {
		t.Errorf("delete: status = %d", rec.Code)
	}
}

func TestPromoCodes(t *testing.T) {
	h := newHarness(t, nil)

	h.do(http.MethodGet, "/api/promo-codes/", "", nil)
	if h.promos.lastAdmin {
		t.Error("anonymous caller treated as admin")
	}
	h.do(http.MethodGet, "/api/promo-codes/", h.token(1), nil)
	if !h.promos.lastAdmin {
		t.Error("admin caller not recognised")
	}

	body := map[string]any{
		"coupon_code": "SAVE10", "coupon_name": "Ten off", "type": "FIXED",
		"start_at": "2026-01-01T00:00:00", "ended_at": "2026-12-31T23:59:59Z", "fixed_amount": "10",
	}
	rec := h.do(http.MethodPost, "/api/promo-codes/", h.token(1), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d body=%s", rec.Code, rec.Body)
	}
	if p := decode[promoResp](t, rec); p.FixedAmount == nil || *p.FixedAmount != "10.00" || p.DiscountPercentage != nil {
		t.Errorf("created = %+v", p)
	}

	big := map[string]any{}
	for k, v := range body {
		big[k] = v
	}
	big["fixed_amount"] = "100000000"
	rec = h.do(http.MethodPost, "/api/promo-codes/", h.token(1), big)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "fixed_amount") {
		t.Errorf("fixed_amount over 8 digits: status = %d body=%s", rec.Code, rec.Body)
	}

	body["type"] = "PERCENTAGE"
	rec = h.do(http.MethodPost, "/api/promo-codes/", h.token(1), body)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "discount_percentage") {
		t.Errorf("percentage without pct: status = %d body=%s", rec.Code, rec.Body)
	}
	body["type"] = "BOGUS"
	if rec := h.do(http.MethodPost, "/api/promo-codes/", h.token(1), body); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPatch, "/api/promo-codes/1/", h.token(1), map[string]any{"coupon_code": "DUP"}); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate code: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/promo-codes/7/", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("detail: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/promo-codes/1/", h.token(2), nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin delete: status = %d", rec.Code)
	}
}

func TestPromoCodes_NullClearsAmount(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(1)

	rec := h.do(http.MethodPatch, "/api/promo-codes/1/", admin, map[string]any{"max_discount_amount": nil, "discount_percentage": "15"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	got := h.promos.lastPatch
	if !got.MaxDiscountAmount.Set || got.MaxDiscountAmount.Value != nil {
		t.Errorf("explicit null not passed as clear: %+v", got.MaxDiscountAmount)
	}
	if !got.DiscountPercentage.Set || got.DiscountPercentage.Value == nil || !got.DiscountPercentage.Value.Equal(decimal.NewFromInt(15)) {
		t.Errorf("discount_percentage = %+v", got.DiscountPercentage)
	}
	if got.FixedAmount.Set {
		t.Errorf("absent fixed_amount marked as set: %+v", got.FixedAmount)
	}
	if p := decode[promoResp](t, rec); p.MaxDiscountAmount != nil {
		t.Errorf("max_discount_amount = %v, want null", *p.MaxDiscountAmount)
	}

	rec = h.do(http.MethodPut, "/api/promo-codes/1/", admin, map[string]any{
		"coupon_code": "PCT", "coupon_name": "Pct", "type": "PERCENTAGE",
		"start_at": "2026-01-01T00:00:00Z", "ended_at": "2026-12-31T00:00:00Z",
		"discount_percentage": "10", "fixed_amount": nil,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status = %d body=%s", rec.Code, rec.Body)
	}
	if got := h.promos.lastPatch.FixedAmount; !got.Set || got.Value != nil {
		t.Errorf("put with null fixed_amount: %+v", got)
	}

	if rec := h.do(http.MethodPatch, "/api/promo-codes/1/", admin, map[string]any{"fixed_amount": "abc"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad decimal: status = %d", rec.Code)
	}
}

func TestOrders_Create(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "ok",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 2}}, "coupon_code": " SAVE10 "},
			wantCode: http.StatusCreated,
			wantBody: `"total_price":"90.00"`,
		},
		{
			name:     "no items",
			body:     map[string]any{"items": []map[string]int{}},
			wantCode: http.StatusBadRequest,
			wantBody: `"items"`,
		},
		{
			name:     "missing items",
			body:     map[string]any{},
			wantCode: http.StatusBadRequest,
			wantBody: `"items"`,
		},
		{
			name:     "zero quantity",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 0}}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "quantity above column range",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 1 << 62}}},
			wantCode: http.StatusBadRequest,
			wantBody: `"quantity"`,
		},
		{
			name:     "order total too large",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 2000000}}},
			err:      orders.ErrAmountTooLarge,
			wantCode: http.StatusBadRequest,
			wantBody: `"items"`,
		},
		{
			name:     "insufficient stock",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 50}}},
			err:      fmt.Errorf("%w: Laptop", orders.ErrInsufficientStock),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Not enough stock for product"}`,
		},
		{
			name:     "unknown promo",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 1}}, "coupon_code": "NOPE"},
			err:      orders.ErrInvalidPromo,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Invalid promo code"}`,
		},
		{
			name:     "promo already used",
			body:     map[string]any{"items": []map[string]int{{"product": 5, "quantity": 1}}, "coupon_code": "SAVE10"},
			err:      orders.ErrPromoNotApplicable,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Promo code is not valid"}`,
		},
		{
			name:     "unknown product",
			body:     map[string]any{"items": []map[string]int{{"product": 404, "quantity": 1}}},
			err:      fmt.Errorf("%w: 404", orders.ErrUnknownProduct),
			wantCode: http.StatusBadRequest,
			wantBody: `"items"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.orders.createErr = tt.err
			rec := h.do(http.MethodPost, "/api/orders/", h.token(2), tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want to contain %s", rec.Body, tt.wantBody)
			}
			if tt.name == "ok" && h.orders.lastIn.CouponCode != "SAVE10" {
				t.Errorf("coupon not trimmed: %q", h.orders.lastIn.CouponCode)
			}
		})
	}
}

func TestOrders_ResponseShape(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/orders/10/", h.token(2), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	o := decode[orderResp](t, rec)
	if o.User.Email != "jane@example.com" || o.User.DateOfBirth == nil || *o.User.DateOfBirth != "1990-05-17" {
		t.Errorf("user = %+v", o.User)
	}
	if len(o.Items) != 1 || o.Items[0].Product != 5 || o.Items[0].Price != "100.00" {
		t.Errorf("items = %+v", o.Items)
	}
	if o.Discount != "10.00" || o.CouponCode == nil || *o.CouponCode != "SAVE10" || o.Status != "PENDING" {
		t.Errorf("order = %+v", o)
	}

	// orang lain tidak boleh lihat
	if rec := h.do(http.MethodGet, "/api/orders/10/", h.token(3), nil); rec.Code != http.StatusNotFound {
		t.Errorf("stranger: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/orders/10/", h.token(1), nil); rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/orders/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list: status = %d", rec.Code)
	}
}

func TestOrders_UpdateErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		err      error
		wantCode int
	}{
		{name: "illegal transition", body: map[string]any{"status": "PENDING"}, err: fmt.Errorf("%w: DELIVERED -> PENDING", orders.ErrInvalidTransition), wantCode: http.StatusConflict},
		{name: "not editable", body: map[string]any{"items": []map[string]int{{"product": 5, "quantity": 1}}}, err: orders.ErrNotEditable, wantCode: http.StatusConflict},
		{name: "status by owner", body: map[string]any{"status": "SHIPPED"}, err: orders.ErrForbidden, wantCode: http.StatusForbidden},
		{name: "unknown status", body: map[string]any{"status": "LOST"}, wantCode: http.StatusBadRequest},
		{name: "empty items", body: map[string]any{"items": []map[string]int{}}, wantCode: http.StatusBadRequest},
		{name: "ok", body: map[string]any{"coupon_code": "SAVE10"}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.orders.updateErr = tt.err
			rec := h.do(http.MethodPatch, "/api/orders/10/", h.token(2), tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
			}
		})
	}
}

func TestOrders_Delete(t *testing.T) {
	h := newHarness(t, nil)
	if rec := h.do(http.MethodDelete, "/api/orders/10/", h.token(2), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/orders/abc/", h.token(2), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("bad id: status = %d", rec.Code)
	}
}
