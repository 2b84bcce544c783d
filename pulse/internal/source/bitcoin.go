// CLAUDE:SUMMARY Bitcoin spot price adapter with a three-exchange fallback chain.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hazyhaar/worldpulse/fact"
)

// Default API hosts for the price chain, tried in order.
const (
	DefaultCoinGeckoBase = "https://api.coingecko.com"
	DefaultCoinbaseBase  = "https://api.coinbase.com"
	DefaultKrakenBase    = "https://api.kraken.com"
)

// BitcoinPrice reports the current BTC/USD spot price. Three independent
// public APIs back it so a single exchange outage does not stall the
// hourly refresh.
type BitcoinPrice struct {
	client    *Client
	coingecko string
	coinbase  string
	kraken    string
	logger    *slog.Logger
}

// NewBitcoinPrice builds the adapter. Empty bases select the defaults.
func NewBitcoinPrice(client *Client, logger *slog.Logger, coingecko, coinbase, kraken string) *BitcoinPrice {
	if coingecko == "" {
		coingecko = DefaultCoinGeckoBase
	}
	if coinbase == "" {
		coinbase = DefaultCoinbaseBase
	}
	if kraken == "" {
		kraken = DefaultKrakenBase
	}
	return &BitcoinPrice{
		client:    client,
		coingecko: coingecko,
		coinbase:  coinbase,
		kraken:    kraken,
		logger:    logger,
	}
}

func (a *BitcoinPrice) Slug() string { return "bitcoin-price" }

func (a *BitcoinPrice) Fetch(ctx context.Context, _ Hint) (*fact.Payload, error) {
	return fetchFirst(ctx, a.logger, []Variant{
		{Name: "coingecko", Fetch: a.fetchCoinGecko},
		{Name: "coinbase", Fetch: a.fetchCoinbase},
		{Name: "kraken", Fetch: a.fetchKraken},
	})
}

func (a *BitcoinPrice) fetchCoinGecko(ctx context.Context) (*fact.Payload, error) {
	var out map[string]map[string]float64
	url := a.coingecko + "/api/v3/simple/price?ids=bitcoin&vs_currencies=usd"
	if err := a.client.GetJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	price, ok := out["bitcoin"]["usd"]
	if !ok {
		return nil, fmt.Errorf("%w: coingecko response missing bitcoin.usd", ErrMalformedResponse)
	}
	return a.payload(price, "CoinGecko"), nil
}

func (a *BitcoinPrice) fetchCoinbase(ctx context.Context) (*fact.Payload, error) {
	var out struct {
		Data struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"data"`
	}
	if err := a.client.GetJSON(ctx, a.coinbase+"/v2/prices/BTC-USD/spot", &out); err != nil {
		return nil, err
	}
	price, err := strconv.ParseFloat(out.Data.Amount, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: coinbase amount %q: %v", ErrMalformedResponse, out.Data.Amount, err)
	}
	return a.payload(price, "Coinbase"), nil
}

func (a *BitcoinPrice) fetchKraken(ctx context.Context) (*fact.Payload, error) {
	var out struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			C []string `json:"c"` // [last trade price, lot volume]
		} `json:"result"`
	}
	if err := a.client.GetJSON(ctx, a.kraken+"/0/public/Ticker?pair=XBTUSD", &out); err != nil {
		return nil, err
	}
	if len(out.Error) > 0 {
		return nil, fmt.Errorf("%w: kraken: %v", ErrUpstreamUnavailable, out.Error)
	}
	for _, ticker := range out.Result {
		if len(ticker.C) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(ticker.C[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: kraken price %q: %v", ErrMalformedResponse, ticker.C[0], err)
		}
		return a.payload(price, "Kraken"), nil
	}
	return nil, fmt.Errorf("%w: kraken response has no ticker", ErrMalformedResponse)
}

func (a *BitcoinPrice) payload(price float64, via string) *fact.Payload {
	return &fact.Payload{
		UnitLabel: "USD",
		DotValue:  1000,
		Total:     price,
		Categories: []fact.Category{
			{Key: "price", Label: "Price of one bitcoin", Value: price},
		},
		Notes: "Spot price via " + via,
	}
}
