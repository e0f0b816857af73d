package dto

import (
	"encoding/json"

	"cryptosniper/internal/domain"
)

// CreateStrategyRequest represents a new strategy. Any userId in the payload
// is ignored; the owner is the session user.
type CreateStrategyRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Type        string          `json:"type"`
	MaxDrawdown float64         `json:"maxDrawdown"`
	Margin      float64         `json:"margin"`
	Config      json.RawMessage `json:"config"`
	IsDeployed  bool            `json:"isDeployed"`
}

// ToDomain builds the strategy owned by userID. A missing config is stored as
// an empty object.
func (r CreateStrategyRequest) ToDomain(userID int64) *domain.Strategy {
	config := r.Config
	if len(config) == 0 || string(config) == "null" {
		config = json.RawMessage(`{}`)
	}
	return &domain.Strategy{
		UserID:      userID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		MaxDrawdown: r.MaxDrawdown,
		Margin:      r.Margin,
		Config:      config,
		IsDeployed:  r.IsDeployed,
	}
}
