package store

import (
	"cryptosniper/internal/domain"
)

// Entity kinds
const (
	KindUser     = "user"
	KindStrategy = "strategy"
	KindPosition = "position"
	KindSnapshot = "portfolio_snapshot"
)

// Store is the process-wide set of in-memory collections.
// It is built once by the bootstrap and handed to the repositories.
type Store struct {
	Users      *Collection[domain.User, *domain.User]
	Strategies *Collection[domain.Strategy, *domain.Strategy]
	Positions  *Collection[domain.Position, *domain.Position]
	Snapshots  *Collection[domain.PortfolioSnapshot, *domain.PortfolioSnapshot]
}

// New creates an empty store; now defaults to time.Now
func New(now Clock) *Store {
	return &Store{
		Users:      NewCollection[domain.User](KindUser, now),
		Strategies: NewCollection[domain.Strategy](KindStrategy, now),
		Positions:  NewCollection[domain.Position](KindPosition, now),
		Snapshots:  NewCollection[domain.PortfolioSnapshot](KindSnapshot, now),
	}
}

// Counts returns live record counts per kind
func (s *Store) Counts() map[string]int {
	return map[string]int{
		KindUser:     s.Users.Len(),
		KindStrategy: s.Strategies.Len(),
		KindPosition: s.Positions.Len(),
		KindSnapshot: s.Snapshots.Len(),
	}
}
