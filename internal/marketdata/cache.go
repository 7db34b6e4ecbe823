package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/appraiser/internal/database"
	"github.com/aristath/appraiser/internal/domain"
)

// DefaultCacheTTL is how long a cached snapshot stays fresh.
const DefaultCacheTTL = 15 * time.Minute

// CachedProvider decorates a MarketData source with a sqlite snapshot cache.
// Caching is strictly outside the valuation core: the engine sees the same
// MarketData interface either way. Any cache failure degrades to a direct
// fetch and never fails the request.
type CachedProvider struct {
	source domain.MarketData
	db     *database.DB
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedProvider wraps source with a snapshot cache stored in db.
func NewCachedProvider(source domain.MarketData, db *database.DB, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		source: source,
		db:     db,
		ttl:    ttl,
		log:    log.With().Str("component", "marketdata_cache").Logger(),
	}
}

// GetQuote serves a fresh cached quote or fetches and stores one.
func (p *CachedProvider) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	key := "quote:" + symbol
	var cached domain.Quote
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	quote, err := p.source.GetQuote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	p.store(ctx, key, quote)
	return quote, nil
}

// GetFinancials serves a fresh cached series or fetches and stores one.
func (p *CachedProvider) GetFinancials(ctx context.Context, symbol string, metric domain.Metric, periods int) (domain.HistoricalSeries, error) {
	key := fmt.Sprintf("financials:%s:%s:%d", symbol, metric, periods)
	var cached domain.HistoricalSeries
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	series, err := p.source.GetFinancials(ctx, symbol, metric, periods)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, series)
	return series, nil
}

// GetPeerFundamentals serves fresh cached peer rows or fetches and stores them.
func (p *CachedProvider) GetPeerFundamentals(ctx context.Context, symbols []string) ([]domain.PeerFundamentals, error) {
	key := "peers:" + fmt.Sprint(symbols)
	var cached []domain.PeerFundamentals
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	peers, err := p.source.GetPeerFundamentals(ctx, symbols)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, peers)
	return peers, nil
}

// GetConsensus serves a fresh cached estimate or fetches and stores one.
func (p *CachedProvider) GetConsensus(ctx context.Context, symbol string, metric domain.Metric) (float64, error) {
	key := fmt.Sprintf("consensus:%s:%s", symbol, metric)
	var cached float64
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	estimate, err := p.source.GetConsensus(ctx, symbol, metric)
	if err != nil {
		return 0, err
	}
	p.store(ctx, key, estimate)
	return estimate, nil
}

// priceHistorySource is the optional capability of sources that can serve
// daily closing prices.
type priceHistorySource interface {
	GetDailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

// GetDailyCloses serves cached daily closes when the underlying source
// supports price history.
func (p *CachedProvider) GetDailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	source, ok := p.source.(priceHistorySource)
	if !ok {
		return nil, domain.DataUnavailablef("price history not supported by market data source")
	}

	key := fmt.Sprintf("closes:%s:%d", symbol, days)
	var cached []float64
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	closes, err := source.GetDailyCloses(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, closes)
	return closes, nil
}

// lookup reports whether a fresh snapshot exists and decodes it into out.
func (p *CachedProvider) lookup(ctx context.Context, key string, out any) bool {
	if p.db == nil {
		return false
	}

	var blob []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE key = ? AND fetched_at > ?`,
		key, time.Now().Add(-p.ttl).Unix(),
	).Scan(&blob)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			p.log.Warn().Str("key", key).Err(err).Msg("Cache lookup failed, fetching directly")
		}
		return false
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		p.log.Warn().Str("key", key).Err(err).Msg("Cached snapshot undecodable, fetching directly")
		return false
	}
	return true
}

// store writes a snapshot. Failures are logged and ignored.
func (p *CachedProvider) store(ctx context.Context, key string, value any) {
	if p.db == nil {
		return
	}

	blob, err := msgpack.Marshal(value)
	if err != nil {
		p.log.Warn().Str("key", key).Err(err).Msg("Failed to encode snapshot")
		return
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, blob, time.Now().Unix(),
	)
	if err != nil {
		p.log.Warn().Str("key", key).Err(err).Msg("Failed to store snapshot")
	}
}
