package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// Balance is one token holding reported by Covalent's balances_v2.
type Balance struct {
	ContractAddress      string   `json:"contract_address"`
	ContractName         string   `json:"contract_name"`
	ContractTickerSymbol string   `json:"contract_ticker_symbol"`
	ContractDecimals     int32    `json:"contract_decimals"`
	Balance              string   `json:"balance"`
	Quote                *float64 `json:"quote"`
	QuoteRate            *float64 `json:"quote_rate"`
}

type balancesResponse struct {
	Data struct {
		Address string    `json:"address"`
		Items   []Balance `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// Portfolio is the valued wallet across chains.
type Portfolio struct {
	Total  decimal.Decimal
	Chains map[string]decimal.Decimal
}

// Covalent values a wallet by summing the USD quotes of its holdings on
// every configured chain.
type Covalent struct {
	client  *Client
	baseURL string
	apiKey  string
	address string
	chains  []string
}

func NewCovalent(client *Client, baseURL, apiKey, address string, chains []string) *Covalent {
	return &Covalent{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		address: address,
		chains:  chains,
	}
}

func (c *Covalent) Balances(ctx context.Context, chain string) ([]Balance, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	endpoint := fmt.Sprintf("%s/%s/address/%s/balances_v2/", c.baseURL, chain, c.address)

	var resp balancesResponse
	if err := c.client.GetJSON(ctx, endpoint, header, "covalent:balances:"+chain+":"+c.address, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s balances: %w", chain, err)
	}
	if resp.Error {
		return nil, fmt.Errorf("fetch %s balances: %w: %s", chain, ErrInvalidResponse, resp.ErrorMessage)
	}
	return resp.Data.Items, nil
}

// Portfolio sums every chain. Chains that fail are skipped; the call
// fails only when none answered.
func (c *Covalent) Portfolio(ctx context.Context) (Portfolio, error) {
	p := Portfolio{
		Total:  decimal.Zero,
		Chains: make(map[string]decimal.Decimal, len(c.chains)),
	}

	var errs []string
	for _, chain := range c.chains {
		items, err := c.Balances(ctx, chain)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		sum := sumQuotes(items)
		p.Chains[chain] = sum
		p.Total = p.Total.Add(sum)
	}

	if len(p.Chains) == 0 {
		if len(errs) == 0 {
			return Portfolio{}, fmt.Errorf("value portfolio: %w", ErrNoData)
		}
		return Portfolio{}, fmt.Errorf("value portfolio: %w: %s", ErrProviderUnavailable, strings.Join(errs, "; "))
	}
	return p, nil
}

// PortfolioValue returns the total in USD.
func (c *Covalent) PortfolioValue(ctx context.Context) (float64, error) {
	p, err := c.Portfolio(ctx)
	if err != nil {
		return 0, err
	}
	return p.Total.InexactFloat64(), nil
}

// sumQuotes adds the quotes of non-dust holdings: a positive raw balance
// or a quote above one dollar.
func sumQuotes(items []Balance) decimal.Decimal {
	sum := decimal.Zero
	one := decimal.NewFromInt(1)

	for _, it := range items {
		if it.Quote == nil {
			continue
		}
		quote := decimal.NewFromFloat(*it.Quote)

		raw, err := decimal.NewFromString(it.Balance)
		if err != nil {
			raw = decimal.Zero
		}
		if !raw.IsPositive() && !quote.GreaterThan(one) {
			continue
		}
		sum = sum.Add(quote)
	}
	return sum
}
