package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cryptosniper/internal/domain"
)

// PriceSource quotes current prices by symbol
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// RevaluationRecorder counts revalued positions
type RevaluationRecorder interface {
	PositionsRevalued(n int)
}

// RevaluationService marks every position to the latest price
type RevaluationService struct {
	positions domain.PositionRepository
	prices    PriceSource
	recorder  RevaluationRecorder
	log       *zap.Logger
}

// NewRevaluationService creates a new RevaluationService; recorder may be nil
func NewRevaluationService(
	positions domain.PositionRepository,
	prices PriceSource,
	recorder RevaluationRecorder,
	log *zap.Logger,
) *RevaluationService {
	return &RevaluationService{
		positions: positions,
		prices:    prices,
		recorder:  recorder,
		log:       log,
	}
}

// RevalueAll fetches prices for all position symbols and writes the new mark
// price through the repository, which recomputes unrealized P&L. Symbols the
// feed does not quote are skipped.
func (s *RevaluationService) RevalueAll(ctx context.Context) (int, error) {
	positions, err := s.positions.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get positions: %w", err)
	}
	if len(positions) == 0 {
		return 0, nil
	}

	seen := make(map[string]bool)
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbol := strings.ToUpper(p.Symbol)
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}

	prices, err := s.prices.FetchPrices(ctx, symbols)
	if err != nil {
		if !IsPartial(err) {
			return 0, fmt.Errorf("failed to fetch prices: %w", err)
		}
		s.log.Warn("partial price fetch", zap.Error(err))
	}

	revalued := 0
	for _, p := range positions {
		mark, ok := prices[strings.ToUpper(p.Symbol)]
		if !ok {
			continue
		}
		if _, err := s.positions.Update(ctx, p.ID, domain.PositionPatch{MarkPrice: &mark}); err != nil {
			// Deleted between list and update
			s.log.Debug("skip revaluation", zap.Int64("position_id", p.ID), zap.Error(err))
			continue
		}
		revalued++
	}

	if s.recorder != nil {
		s.recorder.PositionsRevalued(revalued)
	}
	s.log.Info("positions revalued", zap.Int("count", revalued), zap.Int("total", len(positions)))
	return revalued, nil
}
