package domain

import (
	"context"
	"time"
)

// Event types
const (
	EventStrategyCreated    = "strategy.created"
	EventStrategyUpdated    = "strategy.updated"
	EventStrategyDeployed   = "strategy.deployed"
	EventStrategyUndeployed = "strategy.undeployed"
	EventStrategyDeleted    = "strategy.deleted"
	EventPositionOpened     = "position.opened"
	EventPositionUpdated    = "position.updated"
	EventPositionClosed     = "position.closed"
	EventPortfolioSnapshot  = "portfolio.snapshot"
	EventUserRegistered     = "user.registered"
)

// Event is a change notification for downstream consumers
type Event struct {
	Type       string      `json:"type"`
	UserID     int64       `json:"userId"`
	EntityID   int64       `json:"entityId"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// EventPublisher ships events off-process
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
