package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Market is one row of CoinGecko's /coins/markets.
type Market struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCap                float64  `json:"market_cap"`
	TotalVolume              float64  `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// PriceSnapshot maps upper-cased symbols to USD prices. Change24h holds
// the provider's 24h move in percent when reported.
type PriceSnapshot struct {
	Prices    map[string]float64
	Change24h map[string]float64
}

type CoinGecko struct {
	client  *Client
	baseURL string
	apiKey  string
	ids     []string
}

func NewCoinGecko(client *Client, baseURL, apiKey string, ids []string) *CoinGecko {
	return &CoinGecko{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ids:     ids,
	}
}

func (g *CoinGecko) Markets(ctx context.Context) ([]Market, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(g.ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", "250")
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")

	header := http.Header{}
	if g.apiKey != "" {
		header.Set("x-cg-demo-api-key", g.apiKey)
	}

	var markets []Market
	endpoint := g.baseURL + "/coins/markets?" + q.Encode()
	if err := g.client.GetJSON(ctx, endpoint, header, "coingecko:markets:"+strings.Join(g.ids, ","), &markets); err != nil {
		return nil, fmt.Errorf("fetch coingecko markets: %w", err)
	}

	return markets, nil
}

// Prices returns the latest USD price per symbol. Rows without a
// positive price are dropped.
func (g *CoinGecko) Prices(ctx context.Context) (PriceSnapshot, error) {
	markets, err := g.Markets(ctx)
	if err != nil {
		return PriceSnapshot{}, err
	}

	snap := PriceSnapshot{
		Prices:    make(map[string]float64, len(markets)),
		Change24h: make(map[string]float64, len(markets)),
	}
	for _, m := range markets {
		if m.Symbol == "" || m.CurrentPrice <= 0 {
			continue
		}
		symbol := strings.ToUpper(m.Symbol)
		snap.Prices[symbol] = m.CurrentPrice
		if m.PriceChangePercentage24h != nil {
			snap.Change24h[symbol] = *m.PriceChangePercentage24h
		}
	}

	if len(snap.Prices) == 0 {
		return PriceSnapshot{}, fmt.Errorf("fetch coingecko markets: %w", ErrNoData)
	}
	return snap, nil
}
