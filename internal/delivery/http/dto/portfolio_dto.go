package dto

import "cryptosniper/internal/domain"

// CreateSnapshotRequest records the portfolio's current value. The timestamp
// is assigned by the server.
type CreateSnapshotRequest struct {
	TotalValue float64                           `json:"totalValue"`
	BTCValue   float64                           `json:"btcValue"`
	Assets     map[string]domain.AssetAllocation `json:"assets"`
}

// ToDomain builds the snapshot owned by userID
func (r CreateSnapshotRequest) ToDomain(userID int64) *domain.PortfolioSnapshot {
	assets := r.Assets
	if assets == nil {
		assets = make(map[string]domain.AssetAllocation)
	}
	return &domain.PortfolioSnapshot{
		UserID:     userID,
		TotalValue: r.TotalValue,
		BTCValue:   r.BTCValue,
		Assets:     assets,
	}
}
