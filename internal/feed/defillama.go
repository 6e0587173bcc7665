package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

const (
	minPoolAPY   = 5.0
	minPoolTVL   = 100_000.0
	maxPoolCount = 15
)

// Pool is one entry of DeFiLlama's /pools.
type Pool struct {
	Pool    string   `json:"pool"`
	Chain   string   `json:"chain"`
	Project string   `json:"project"`
	Symbol  string   `json:"symbol"`
	TVLUSD  float64  `json:"tvlUsd"`
	APY     *float64 `json:"apy"`
}

type poolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

type DefiLlama struct {
	client  *Client
	baseURL string
}

func NewDefiLlama(client *Client, baseURL string) *DefiLlama {
	return &DefiLlama{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *DefiLlama) Pools(ctx context.Context) ([]Pool, error) {
	var resp poolsResponse
	if err := d.client.GetJSON(ctx, d.baseURL+"/pools", nil, "defillama:pools", &resp); err != nil {
		return nil, fmt.Errorf("fetch defillama pools: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("fetch defillama pools: %w: status %q", ErrInvalidResponse, resp.Status)
	}
	return resp.Data, nil
}

// Yields returns the best pools with an APY above 5% and more than
// $100k locked, highest APY first.
func (d *DefiLlama) Yields(ctx context.Context) ([]alert.YieldOpportunity, error) {
	pools, err := d.Pools(ctx)
	if err != nil {
		return nil, err
	}
	return topYields(pools), nil
}

func topYields(pools []Pool) []alert.YieldOpportunity {
	kept := make([]Pool, 0, len(pools))
	for _, p := range pools {
		if p.APY == nil || *p.APY <= minPoolAPY || p.TVLUSD <= minPoolTVL {
			continue
		}
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].APY > *kept[j].APY
	})
	if len(kept) > maxPoolCount {
		kept = kept[:maxPoolCount]
	}

	out := make([]alert.YieldOpportunity, 0, len(kept))
	for _, p := range kept {
		out = append(out, alert.YieldOpportunity{
			Protocol: poolLabel(p),
			APY:      *p.APY,
		})
	}
	return out
}

// poolLabel names a pool the way the dashboard shows it, e.g.
// "aave-v3 USDC (Ethereum)".
func poolLabel(p Pool) string {
	label := p.Project
	if p.Symbol != "" {
		label += " " + p.Symbol
	}
	if p.Chain != "" {
		label += " (" + p.Chain + ")"
	}
	return label
}
