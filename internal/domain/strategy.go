package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Strategy is a named, reusable trading-rule configuration owned by a user
type Strategy struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Type        string          `json:"type"`
	MaxDrawdown float64         `json:"maxDrawdown"`
	Margin      float64         `json:"margin"`
	Config      json.RawMessage `json:"config"` // Opaque blob: instruments, start/end time, segment and strategy type tags
	IsDeployed  bool            `json:"isDeployed"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// StrategyPatch lists the fields a partial update may overwrite.
// Nil fields are left untouched.
type StrategyPatch struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Type        *string         `json:"type,omitempty"`
	MaxDrawdown *float64        `json:"maxDrawdown,omitempty"`
	Margin      *float64        `json:"margin,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	IsDeployed  *bool           `json:"isDeployed,omitempty"`
}

// StrategyType constants used by the pre-built catalogue
const (
	StrategyTypeOption  = "OPTION"
	StrategyTypeFutures = "FUTURES"
	StrategyTypeSpot    = "SPOT"
)

// EntityID implements store.Entity
func (s *Strategy) EntityID() int64 { return s.ID }

// Created implements store.Entity
func (s *Strategy) Created() time.Time { return s.CreatedAt }

// Stamp implements store.Entity
func (s *Strategy) Stamp(id int64, at time.Time) {
	s.ID = id
	s.CreatedAt = at
}

// Clone implements store.Entity
func (s *Strategy) Clone() Strategy {
	out := *s
	out.Description = cloneString(s.Description)
	out.Config = cloneRaw(s.Config)
	return out
}

// OwnerID returns the owning user id
func (s *Strategy) OwnerID() int64 { return s.UserID }

// Apply merges the supplied patch fields into the strategy.
// Identity and ownership are not part of the patch and cannot change.
func (s *Strategy) Apply(p StrategyPatch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = cloneString(p.Description)
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.MaxDrawdown != nil {
		s.MaxDrawdown = *p.MaxDrawdown
	}
	if p.Margin != nil {
		s.Margin = *p.Margin
	}
	if p.hasConfig() {
		s.Config = cloneRaw(p.Config)
	}
	if p.IsDeployed != nil {
		s.IsDeployed = *p.IsDeployed
	}
}

// IsEmpty reports whether applying the patch would change nothing
func (p StrategyPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Type == nil &&
		p.MaxDrawdown == nil && p.Margin == nil && !p.hasConfig() && p.IsDeployed == nil
}

// hasConfig treats an explicit JSON null as absent
func (p StrategyPatch) hasConfig() bool {
	return len(p.Config) > 0 && !bytes.Equal(bytes.TrimSpace(p.Config), []byte("null"))
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
