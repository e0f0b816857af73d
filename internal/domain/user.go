package domain

import (
	"time"
)

// User represents a registered dashboard account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	APIKey       *string   `json:"apiKey,omitempty"`
	APISecret    *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EntityID implements store.Entity
func (u *User) EntityID() int64 { return u.ID }

// Created implements store.Entity
func (u *User) Created() time.Time { return u.CreatedAt }

// Stamp implements store.Entity
func (u *User) Stamp(id int64, at time.Time) {
	u.ID = id
	u.CreatedAt = at
}

// Clone implements store.Entity
func (u *User) Clone() User {
	out := *u
	out.Name = cloneString(u.Name)
	out.Phone = cloneString(u.Phone)
	out.APIKey = cloneString(u.APIKey)
	out.APISecret = cloneString(u.APISecret)
	return out
}

// HasBrokerCredentials reports whether the user connected a broker account
func (u *User) HasBrokerCredentials() bool {
	return u.APIKey != nil && *u.APIKey != "" && u.APISecret != nil && *u.APISecret != ""
}

// DisplayName returns the name if set, else the username
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Username
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
