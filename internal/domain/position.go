package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide is the direction of a position
type PositionSide string

// PositionSide constants
const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// Valid reports whether the side is a known tag
func (s PositionSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// Position represents an open or closed trade record
type Position struct {
	ID                   int64        `json:"id"`
	UserID               int64        `json:"userId"`
	StrategyID           *int64       `json:"strategyId,omitempty"`
	Symbol               string       `json:"symbol"`
	Exchange             string       `json:"exchange"`
	NotionalValue        float64      `json:"notionalValue"`
	EntryPrice           float64      `json:"entryPrice"`
	MarkPrice            float64      `json:"markPrice"`
	UnrealizedPnL        float64      `json:"unrealizedPnl"`
	UnrealizedPnLPercent float64      `json:"unrealizedPnlPercent"`
	RealizedPnL          float64      `json:"realizedPnl"`
	RealizedPnLPercent   float64      `json:"realizedPnlPercent"`
	Leverage             float64      `json:"leverage"`
	Side                 PositionSide `json:"side"`
	IsIsolated           bool         `json:"isIsolated"`
	CreatedAt            time.Time    `json:"createdAt"`
}

// PositionPatch lists the fields a price/P&L update may overwrite
type PositionPatch struct {
	NotionalValue        *float64 `json:"notionalValue,omitempty"`
	MarkPrice            *float64 `json:"markPrice,omitempty"`
	UnrealizedPnL        *float64 `json:"unrealizedPnl,omitempty"`
	UnrealizedPnLPercent *float64 `json:"unrealizedPnlPercent,omitempty"`
	RealizedPnL          *float64 `json:"realizedPnl,omitempty"`
	RealizedPnLPercent   *float64 `json:"realizedPnlPercent,omitempty"`
	Leverage             *float64 `json:"leverage,omitempty"`
	IsIsolated           *bool    `json:"isIsolated,omitempty"`
}

// Position defaults
const (
	DefaultLeverage = 1.0
)

// EntityID implements store.Entity
func (p *Position) EntityID() int64 { return p.ID }

// Created implements store.Entity
func (p *Position) Created() time.Time { return p.CreatedAt }

// Stamp implements store.Entity
func (p *Position) Stamp(id int64, at time.Time) {
	p.ID = id
	p.CreatedAt = at
}

// Clone implements store.Entity
func (p *Position) Clone() Position {
	out := *p
	out.StrategyID = cloneInt64(p.StrategyID)
	return out
}

// OwnerID returns the owning user id
func (p *Position) OwnerID() int64 { return p.UserID }

// IsLong checks if the position is a LONG position
func (p *Position) IsLong() bool {
	return p.Side == SideLong
}

// Apply merges the supplied patch fields into the position.
// When the mark price moves and no unrealized P&L is supplied, P&L is recomputed.
func (p *Position) Apply(patch PositionPatch) {
	if patch.NotionalValue != nil {
		p.NotionalValue = *patch.NotionalValue
	}
	if patch.Leverage != nil {
		p.Leverage = *patch.Leverage
	}
	if patch.IsIsolated != nil {
		p.IsIsolated = *patch.IsIsolated
	}
	if patch.RealizedPnL != nil {
		p.RealizedPnL = *patch.RealizedPnL
	}
	if patch.RealizedPnLPercent != nil {
		p.RealizedPnLPercent = *patch.RealizedPnLPercent
	}
	if patch.MarkPrice != nil {
		if patch.UnrealizedPnL == nil && patch.UnrealizedPnLPercent == nil {
			p.Revalue(*patch.MarkPrice)
		} else {
			p.MarkPrice = *patch.MarkPrice
		}
	}
	if patch.UnrealizedPnL != nil {
		p.UnrealizedPnL = *patch.UnrealizedPnL
	}
	if patch.UnrealizedPnLPercent != nil {
		p.UnrealizedPnLPercent = *patch.UnrealizedPnLPercent
	}
}

// Revalue sets the mark price and recomputes unrealized P&L.
// PnL % follows the futures convention: PnL / initial margin × 100,
// where initial margin = notional / leverage.
func (p *Position) Revalue(markPrice float64) {
	p.MarkPrice = markPrice

	entry := decimal.NewFromFloat(p.EntryPrice)
	notional := decimal.NewFromFloat(p.NotionalValue)
	if entry.IsZero() || notional.IsZero() {
		p.UnrealizedPnL = 0
		p.UnrealizedPnLPercent = 0
		return
	}

	leverage := decimal.NewFromFloat(p.Leverage)
	if leverage.LessThan(decimal.NewFromInt(1)) {
		leverage = decimal.NewFromInt(1)
	}

	quantity := notional.Div(entry)
	move := decimal.NewFromFloat(markPrice).Sub(entry)
	if !p.IsLong() {
		move = move.Neg()
	}
	pnl := move.Mul(quantity)

	margin := notional.Div(leverage)
	pct := pnl.Div(margin).Mul(decimal.NewFromInt(100))

	p.UnrealizedPnL = pnl.Round(8).InexactFloat64()
	p.UnrealizedPnLPercent = pct.Round(4).InexactFloat64()
}
