package domain

import (
	"time"
)

// AssetAllocation is one asset's share of a portfolio snapshot
type AssetAllocation struct {
	Percentage float64 `json:"percentage"`
	Value      float64 `json:"value"`
}

// PortfolioSnapshot is an immutable point-in-time valuation
type PortfolioSnapshot struct {
	ID         int64                      `json:"id"`
	UserID     int64                      `json:"userId"`
	TotalValue float64                    `json:"totalValue"`
	BTCValue   float64                    `json:"btcValue"`
	Assets     map[string]AssetAllocation `json:"assets"`
	Timestamp  time.Time                  `json:"timestamp"` // Server-assigned capture time
}

// Portfolio history defaults
const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 500
)

// EntityID implements store.Entity
func (s *PortfolioSnapshot) EntityID() int64 { return s.ID }

// Created implements store.Entity
func (s *PortfolioSnapshot) Created() time.Time { return s.Timestamp }

// Stamp implements store.Entity
func (s *PortfolioSnapshot) Stamp(id int64, at time.Time) {
	s.ID = id
	s.Timestamp = at
}

// Clone implements store.Entity
func (s *PortfolioSnapshot) Clone() PortfolioSnapshot {
	out := *s
	if s.Assets != nil {
		out.Assets = make(map[string]AssetAllocation, len(s.Assets))
		for k, v := range s.Assets {
			out.Assets[k] = v
		}
	}
	return out
}

// OwnerID returns the owning user id
func (s *PortfolioSnapshot) OwnerID() int64 { return s.UserID }
