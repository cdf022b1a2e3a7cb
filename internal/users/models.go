package users

import (
	"encoding/json"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.IsStaff || u.IsSuperuser }

// MarshalJSON renders date_of_birth as a plain date.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	var dob *string
	if u.DateOfBirth != nil {
		s := u.DateOfBirth.Format(DateLayout)
		dob = &s
	}
	return json.Marshal(struct {
		alias
		DateOfBirth *string `json:"date_of_birth"`
	}{alias(u), dob})
}

// Filter for the admin listing; nil/empty fields are ignored.
type Filter struct {
	Email     string
	FirstName string
	LastName  string
	IsStaff   *bool
	IsActive  *bool
}

type RegisterInput struct {
	Email       string
	Password1   string
	Password2   string
	FirstName   string
	LastName    string
	PhoneNumber string
	DateOfBirth *time.Time
}

// UpdateInput is a partial update; nil fields stay unchanged.
type UpdateInput struct {
	Email       *string
	Password1   *string
	Password2   *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *time.Time
}

// NormalizeEmail trims the address and lower-cases the domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
