package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/users"
	"github.com/go-chi/chi/v5"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	Update(ctx context.Context, actorID, id int64, in users.UpdateInput) (*users.User, error)
	List(ctx context.Context, f users.Filter) ([]users.User, error)
}

// Tokens is satisfied by auth.Manager.
type Tokens interface {
	TokenParser
	IssuePair(s auth.Subject) (auth.TokenPair, error)
	IssueAccess(s auth.Subject) (string, error)
}

type UsersHandler struct {
	Users  UserService
	Tokens Tokens
	Log    *slog.Logger
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/token/", h.obtainToken)
	r.Post("/token/refresh/", h.refreshToken)
	r.Post("/create/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/update/{id}/", h.getSelf)
		r.Put("/update/{id}/", h.update)
		r.Patch("/update/{id}/", h.update)
	})
	r.With(requireAdmin).Get("/list/", h.list)
}

type tokenReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func subjectOf(u *users.User) auth.Subject {
	return auth.Subject{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin()}
}

func (h *UsersHandler) obtainToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.internal(w, "authenticate", err)
		return
	}
	pair, err := h.Tokens.IssuePair(subjectOf(u))
	if err != nil {
		h.internal(w, "issue tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshReq struct {
	Refresh string `json:"refresh" validate:"required"`
}

func (h *UsersHandler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !decodeJSON(w, r, &req) {
		return
	}
	claims, err := h.Tokens.Parse(req.Refresh, auth.TokenRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	uid, _ := claims.UserID()

	// user bisa saja sudah dinonaktifkan sejak refresh token dibuat
	u, err := h.Users.Get(r.Context(), uid)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !u.IsActive) {
		writeError(w, http.StatusUnauthorized, "User not found or inactive")
		return
	}
	if err != nil {
		h.internal(w, "refresh lookup", err)
		return
	}
	access, err := h.Tokens.IssueAccess(subjectOf(u))
	if err != nil {
		h.internal(w, "issue access token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

type createUserReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password1   string `json:"password1" validate:"required,min=5,max=72"`
	Password2   string `json:"password2" validate:"required,min=5,max=72"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserReq
	if !decodeJSON(w, r, &req) {
		return
	}
	dob, ok := parseDate(w, req.DateOfBirth)
	if !ok {
		return
	}
	u, err := h.Users.Register(r.Context(), users.RegisterInput{
		Email:       req.Email,
		Password1:   req.Password1,
		Password2:   req.Password2,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: dob,
	})
	if err != nil {
		h.userError(w, err)
		return
	}
	h.Log.Info("user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) getSelf(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	p, _ := auth.FromContext(r.Context())
	if p.UserID != id {
		writeError(w, http.StatusForbidden, users.ErrForbidden.Error())
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		h.userError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type updateUserReq struct {
	Email       *string `json:"email" validate:"omitnil,email"`
	Password1   *string `json:"password1"`
	Password2   *string `json:"password2"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"`
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req updateUserReq
	if !decodeJSON(w, r, &req) {
		return
	}
	fe := fieldErrors{}
	for field, pw := range map[string]*string{"password1": req.Password1, "password2": req.Password2} {
		// kosong boleh, artinya password tidak diganti
		if pw == nil || *pw == "" {
			continue
		}
		switch {
		case len(*pw) < 5:
			fe[field] = "Ensure this field has at least 5 characters."
		case len(*pw) > auth.MaxPasswordBytes:
			fe[field] = "Ensure this field has no more than 72 characters."
		}
	}
	if len(fe) > 0 {
		writeFields(w, fe)
		return
	}
	in := users.UpdateInput{
		Email:       req.Email,
		Password1:   req.Password1,
		Password2:   req.Password2,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.DateOfBirth != nil {
		dob, ok := parseDate(w, *req.DateOfBirth)
		if !ok {
			return
		}
		in.DateOfBirth = dob
	}

	p, _ := auth.FromContext(r.Context())
	u, err := h.Users.Update(r.Context(), p.UserID, id, in)
	if err != nil {
		h.userError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := users.Filter{
		Email:     q.str("email"),
		FirstName: q.str("first_name"),
		LastName:  q.str("last_name"),
		IsStaff:   q.bool("is_staff"),
		IsActive:  q.bool("is_active"),
	}
	if !q.valid() {
		writeFields(w, q.errs)
		return
	}
	list, err := h.Users.List(r.Context(), f)
	if err != nil {
		h.internal(w, "list users", err)
		return
	}
	if list == nil {
		list = []users.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) userError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrEmailTaken):
		writeFields(w, fieldErrors{"email": err.Error()})
	case errors.Is(err, users.ErrPasswordMismatch):
		writeFields(w, fieldErrors{"password2": "Passwords do not match"})
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeFields(w, fieldErrors{"password1": "Ensure this field has no more than 72 bytes."})
	case errors.Is(err, users.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		h.internal(w, "user request", err)
	}
}

func (h *UsersHandler) internal(w http.ResponseWriter, op string, err error) {
	h.Log.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseDate reads an optional YYYY-MM-DD value; an empty string means unset.
func parseDate(w http.ResponseWriter, s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(users.DateLayout, s)
	if err != nil {
		writeFields(w, fieldErrors{"date_of_birth": "Date has wrong format. Use YYYY-MM-DD."})
		return nil, false
	}
	return &t, true
}
