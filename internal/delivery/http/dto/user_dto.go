package dto

import "cryptosniper/internal/domain"

// UserSummary is the user shape returned by auth routes
type UserSummary struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Name     *string `json:"name"`
}

// NewUserSummary converts a domain user
func NewUserSummary(u *domain.User) *UserSummary {
	return &UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
	}
}

// UserProfile is the signed-in user's own record
type UserProfile struct {
	*domain.User
	BrokerConnected bool `json:"brokerConnected"`
}

// NewUserProfile converts a domain user
func NewUserProfile(u *domain.User) UserProfile {
	return UserProfile{User: u, BrokerConnected: u.HasBrokerCredentials()}
}
