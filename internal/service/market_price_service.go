package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MissingPricesError reports symbols the feed did not quote. The prices
// that were found are still returned alongside it.
type MissingPricesError struct {
	Symbols []string
}

func (e *MissingPricesError) Error() string {
	return fmt.Sprintf("missing prices for symbols: %v", e.Symbols)
}

// MarketPriceService fetches last-trade prices from a Binance-compatible
// /api/v3/ticker/price endpoint
type MarketPriceService struct {
	httpClient *http.Client
	baseURL    string
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(baseURL string) *MarketPriceService {
	return &MarketPriceService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchPrices fetches current prices for symbols, keyed by upper-case symbol
func (s *MarketPriceService) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64)
	if len(symbols) == 0 {
		return prices, nil
	}

	wanted := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		wanted[strings.ToUpper(symbol)] = true
	}
	requested := make([]string, 0, len(wanted))
	for symbol := range wanted {
		requested = append(requested, symbol)
	}
	sort.Strings(requested)

	query, err := json.Marshal(requested)
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbols: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbols=%s", s.baseURL, url.QueryEscape(string(query)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("price feed error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, ticker := range tickers {
		if !wanted[ticker.Symbol] {
			continue
		}
		price, err := decimal.NewFromString(ticker.Price)
		if err != nil {
			continue
		}
		prices[ticker.Symbol] = price.InexactFloat64()
	}

	var missing []string
	for _, symbol := range requested {
		if _, ok := prices[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	if len(missing) > 0 {
		return prices, &MissingPricesError{Symbols: missing}
	}
	return prices, nil
}

// IsPartial reports whether err only means some symbols were unquoted
func IsPartial(err error) bool {
	var missing *MissingPricesError
	return errors.As(err, &missing)
}
