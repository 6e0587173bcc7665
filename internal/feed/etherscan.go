package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type gasOracleResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type gasOracleResult struct {
	LastBlock       string `json:"LastBlock"`
	SafeGasPrice    string `json:"SafeGasPrice"`
	ProposeGasPrice string `json:"ProposeGasPrice"`
	FastGasPrice    string `json:"FastGasPrice"`
	SuggestBaseFee  string `json:"suggestBaseFee"`
}

// Etherscan reads the gas oracle of every configured chain through the
// Etherscan v2 multichain API.
type Etherscan struct {
	client  *Client
	baseURL string
	apiKey  string
	chains  map[string]int
}

// NewEtherscan takes chains as network name to chain id, e.g.
// {"ethereum": 1, "polygon": 137}.
func NewEtherscan(client *Client, baseURL, apiKey string, chains map[string]int) *Etherscan {
	return &Etherscan{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		chains:  chains,
	}
}

// GasPrice returns the proposed gas price of one chain in gwei.
func (e *Etherscan) GasPrice(ctx context.Context, chainID int) (float64, error) {
	q := url.Values{}
	q.Set("chainid", strconv.Itoa(chainID))
	q.Set("module", "gastracker")
	q.Set("action", "gasoracle")
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}

	var resp gasOracleResponse
	cacheKey := "etherscan:gasoracle:" + strconv.Itoa(chainID)
	if err := e.client.GetJSON(ctx, e.baseURL+"?"+q.Encode(), nil, cacheKey, &resp); err != nil {
		return 0, fmt.Errorf("fetch gas oracle for chain %d: %w", chainID, err)
	}
	if resp.Status != "1" {
		// On failure result holds a plain message, e.g. "Invalid API Key".
		var detail string
		_ = json.Unmarshal(resp.Result, &detail)
		return 0, fmt.Errorf("fetch gas oracle for chain %d: %w: %s %s", chainID, ErrInvalidResponse, resp.Message, detail)
	}

	var result gasOracleResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return 0, fmt.Errorf("decode gas oracle for chain %d: %w: %v", chainID, ErrInvalidResponse, err)
	}

	gwei, err := strconv.ParseFloat(strings.TrimSpace(result.ProposeGasPrice), 64)
	if err != nil {
		return 0, fmt.Errorf("parse gas price for chain %d: %w: %v", chainID, ErrInvalidResponse, err)
	}
	return gwei, nil
}

// GasPrices queries every chain. A chain that fails is left out; the
// call only fails when no chain answered.
func (e *Etherscan) GasPrices(ctx context.Context) (map[string]float64, error) {
	networks := make([]string, 0, len(e.chains))
	for n := range e.chains {
		networks = append(networks, n)
	}
	sort.Strings(networks)

	out := make(map[string]float64, len(networks))
	var errs []string
	for _, network := range networks {
		gwei, err := e.GasPrice(ctx, e.chains[network])
		if err != nil {
			errs = append(errs, network+": "+err.Error())
			continue
		}
		out[network] = gwei
	}

	if len(out) == 0 {
		if len(errs) == 0 {
			return nil, fmt.Errorf("fetch gas prices: %w", ErrNoData)
		}
		return nil, fmt.Errorf("fetch gas prices: %w: %s", ErrProviderUnavailable, strings.Join(errs, "; "))
	}
	return out, nil
}
