// Package marketdata implements the external data collaborators: an HTTP
// client for quotes, financial statements, peer fundamentals and analyst
// estimates, plus a sqlite snapshot cache decorator. Failures here are soft:
// the engine substitutes documented defaults instead of failing a valuation.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
)

const defaultRequestTimeout = 15 * time.Second

// Client fetches market data from an FMP-style JSON API. Missing fields in
// API responses decode to zero values; the engine treats zeros as absent and
// substitutes defaults.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a market-data client. An empty baseURL is allowed but
// every fetch will fail with DataUnavailable, which the engine tolerates.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		log:     log.With().Str("component", "marketdata").Logger(),
	}
}

type quotePayload struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"marketCap"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	PE                float64 `json:"pe"`
	Beta              float64 `json:"beta"`
}

// GetQuote fetches the latest market snapshot for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	var payload []quotePayload
	if err := c.get(ctx, "/api/v3/quote/"+url.PathEscape(symbol), nil, &payload); err != nil {
		return domain.Quote{}, err
	}
	if len(payload) == 0 {
		return domain.Quote{}, domain.DataUnavailablef("no quote returned for %s", symbol)
	}

	q := payload[0]
	return domain.Quote{
		Symbol:            q.Symbol,
		Price:             q.Price,
		MarketCap:         q.MarketCap,
		SharesOutstanding: q.SharesOutstanding,
		PERatio:           q.PE,
		Beta:              q.Beta,
	}, nil
}

type incomeStatementPayload struct {
	CalendarYear    string  `json:"calendarYear"`
	Revenue         float64 `json:"revenue"`
	OperatingIncome float64 `json:"operatingIncome"`
	EBITDA          float64 `json:"ebitda"`
	EPS             float64 `json:"eps"`
	TotalDebt       float64 `json:"totalDebt"`
	Cash            float64 `json:"cashAndCashEquivalents"`
	FreeCashFlow    float64 `json:"freeCashFlow"`
}

// GetFinancials fetches a financial-statement time series, oldest first. The
// API may return fewer periods than requested; callers handle short series.
func (c *Client) GetFinancials(ctx context.Context, symbol string, metric domain.Metric, periods int) (domain.HistoricalSeries, error) {
	var payload []incomeStatementPayload
	query := url.Values{"limit": {fmt.Sprint(periods)}, "period": {"annual"}}
	if err := c.get(ctx, "/api/v3/income-statement/"+url.PathEscape(symbol), query, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, domain.DataUnavailablef("no %s history returned for %s", metric, symbol)
	}

	series := make(domain.HistoricalSeries, 0, len(payload))
	for _, row := range payload {
		var year int
		if _, err := fmt.Sscanf(row.CalendarYear, "%d", &year); err != nil {
			continue
		}
		value, ok := row.metricValue(metric)
		if !ok || value == 0 {
			continue
		}
		series = append(series, domain.Point{Period: year, Value: value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Period < series[j].Period })

	if len(series) == 0 {
		return nil, domain.DataUnavailablef("%s history for %s contained no usable observations", metric, symbol)
	}
	return series, nil
}

func (p incomeStatementPayload) metricValue(metric domain.Metric) (float64, bool) {
	switch metric {
	case domain.MetricRevenue:
		return p.Revenue, true
	case domain.MetricOperatingIncome:
		return p.OperatingIncome, true
	case domain.MetricEBITDA:
		return p.EBITDA, true
	case domain.MetricEPS:
		return p.EPS, true
	case domain.MetricDebt:
		return p.TotalDebt, true
	case domain.MetricCash:
		return p.Cash, true
	case domain.MetricFreeCashFlow:
		return p.FreeCashFlow, true
	}
	return 0, false
}

type ratiosPayload struct {
	Symbol             string   `json:"symbol"`
	GrossProfitMargin  *float64 `json:"grossProfitMargin"`
	NetProfitMargin    *float64 `json:"netProfitMargin"`
	RevenueGrowth      *float64 `json:"revenueGrowth"`
	EPS                *float64 `json:"eps"`
	Revenue            *float64 `json:"revenue"`
	PriceEarningsRatio *float64 `json:"priceEarningsRatio"`
	EVToEBITDA         *float64 `json:"enterpriseValueOverEBITDA"`
}

// GetPeerFundamentals fetches one feature vector per peer. Peers whose fetch
// fails are skipped with a warning; the regression drops incomplete rows
// anyway, so a partial peer set is still usable.
func (c *Client) GetPeerFundamentals(ctx context.Context, symbols []string) ([]domain.PeerFundamentals, error) {
	peers := make([]domain.PeerFundamentals, 0, len(symbols))
	for _, symbol := range symbols {
		var payload []ratiosPayload
		err := c.get(ctx, "/api/v3/ratios-ttm/"+url.PathEscape(symbol), nil, &payload)
		if err != nil || len(payload) == 0 {
			c.log.Warn().Str("symbol", symbol).Err(err).Msg("Skipping peer with no fundamentals")
			continue
		}
		row := payload[0]
		peers = append(peers, domain.PeerFundamentals{
			Symbol:        symbol,
			GrossMargin:   row.GrossProfitMargin,
			NetMargin:     row.NetProfitMargin,
			RevenueGrowth: row.RevenueGrowth,
			EPS:           row.EPS,
			Revenue:       row.Revenue,
			PERatio:       row.PriceEarningsRatio,
			EVEBITDA:      row.EVToEBITDA,
		})
	}
	if len(peers) == 0 {
		return nil, domain.DataUnavailablef("no peer fundamentals available for %v", symbols)
	}
	return peers, nil
}

type estimatePayload struct {
	EstimatedRevenueAvg float64 `json:"estimatedRevenueAvg"`
	EstimatedEPSAvg     float64 `json:"estimatedEpsAvg"`
}

// GetConsensus fetches the analyst average estimate for a metric.
func (c *Client) GetConsensus(ctx context.Context, symbol string, metric domain.Metric) (float64, error) {
	var payload []estimatePayload
	if err := c.get(ctx, "/api/v3/analyst-estimates/"+url.PathEscape(symbol), nil, &payload); err != nil {
		return 0, err
	}
	if len(payload) == 0 {
		return 0, domain.DataUnavailablef("no analyst estimates returned for %s", symbol)
	}

	var estimate float64
	switch metric {
	case domain.MetricEPS:
		estimate = payload[0].EstimatedEPSAvg
	default:
		estimate = payload[0].EstimatedRevenueAvg
	}
	if estimate == 0 {
		return 0, domain.DataUnavailablef("analyst estimate for %s %s is empty", symbol, metric)
	}
	return estimate, nil
}

type historicalPricesPayload struct {
	Historical []struct {
		Close float64 `json:"close"`
	} `json:"historical"`
}

// GetDailyCloses fetches up to days daily closing prices, oldest first.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	var payload historicalPricesPayload
	query := url.Values{"timeseries": {fmt.Sprint(days)}}
	if err := c.get(ctx, "/api/v3/historical-price-full/"+url.PathEscape(symbol), query, &payload); err != nil {
		return nil, err
	}
	if len(payload.Historical) == 0 {
		return nil, domain.DataUnavailablef("no price history returned for %s", symbol)
	}

	// API returns newest first.
	closes := make([]float64, 0, len(payload.Historical))
	for i := len(payload.Historical) - 1; i >= 0; i-- {
		if price := payload.Historical[i].Close; price > 0 {
			closes = append(closes, price)
		}
	}
	return closes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.baseURL == "" {
		return domain.DataUnavailablef("market data endpoint not configured")
	}
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build market data request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.DataUnavailablef("market data request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.DataUnavailablef("market data request for %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.DataUnavailablef("failed to decode market data response: %v", err)
	}
	return nil
}
