package dto

import "cryptosniper/internal/domain"

// CreatePositionRequest represents a newly opened position
type CreatePositionRequest struct {
	StrategyID           *int64              `json:"strategyId"`
	Symbol               string              `json:"symbol"`
	Exchange             string              `json:"exchange"`
	NotionalValue        float64             `json:"notionalValue"`
	EntryPrice           float64             `json:"entryPrice"`
	MarkPrice            *float64            `json:"markPrice"`
	UnrealizedPnL        float64             `json:"unrealizedPnl"`
	UnrealizedPnLPercent float64             `json:"unrealizedPnlPercent"`
	RealizedPnL          float64             `json:"realizedPnl"`
	RealizedPnLPercent   float64             `json:"realizedPnlPercent"`
	Leverage             *float64            `json:"leverage"`
	Side                 domain.PositionSide `json:"side"`
	IsIsolated           *bool               `json:"isIsolated"`
}

// ToDomain builds the position owned by userID. Leverage defaults to 1,
// isolated margin to true and the mark price to the entry price.
func (r CreatePositionRequest) ToDomain(userID int64) *domain.Position {
	p := &domain.Position{
		UserID:               userID,
		StrategyID:           r.StrategyID,
		Symbol:               r.Symbol,
		Exchange:             r.Exchange,
		NotionalValue:        r.NotionalValue,
		EntryPrice:           r.EntryPrice,
		MarkPrice:            r.EntryPrice,
		UnrealizedPnL:        r.UnrealizedPnL,
		UnrealizedPnLPercent: r.UnrealizedPnLPercent,
		RealizedPnL:          r.RealizedPnL,
		RealizedPnLPercent:   r.RealizedPnLPercent,
		Leverage:             domain.DefaultLeverage,
		Side:                 r.Side,
		IsIsolated:           true,
	}
	if r.Leverage != nil {
		p.Leverage = *r.Leverage
	}
	if r.IsIsolated != nil {
		p.IsIsolated = *r.IsIsolated
	}
	if r.MarkPrice != nil {
		p.MarkPrice = *r.MarkPrice
	}
	return p
}
