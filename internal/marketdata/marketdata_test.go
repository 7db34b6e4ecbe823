package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/appraiser/internal/database"
	"github.com/aristath/appraiser/internal/domain"
)

func TestClient_GetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/quote/GOOGL", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `[{"symbol":"GOOGL","price":180.5,"marketCap":2.2e12,"sharesOutstanding":1.25e10,"pe":24.1,"beta":1.05}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", zerolog.Nop())
	quote, err := client.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, "GOOGL", quote.Symbol)
	assert.Equal(t, 180.5, quote.Price)
	assert.Equal(t, 1.25e10, quote.SharesOutstanding)
}

func TestClient_GetQuote_MissingFieldsDecodeToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"GOOGL","price":180.5}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", zerolog.Nop())
	quote, err := client.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, 0.0, quote.SharesOutstanding, "absent fields stay zero for the engine to substitute")
	assert.Equal(t, 0.0, quote.Beta)
}

func TestClient_ErrorsAreDataUnavailable(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", zerolog.Nop()).GetQuote(context.Background(), "GOOGL")
		assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", zerolog.Nop()).GetQuote(context.Background(), "GOOGL")
		assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	})

	t.Run("unconfigured endpoint", func(t *testing.T) {
		_, err := NewClient("", "", zerolog.Nop()).GetQuote(context.Background(), "GOOGL")
		assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	})
}

func TestClient_GetFinancials_SortsAndDropsUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API returns newest first with one zero-revenue row.
		fmt.Fprint(w, `[
			{"calendarYear":"2023","revenue":307e9},
			{"calendarYear":"2022","revenue":283e9},
			{"calendarYear":"2021","revenue":0},
			{"calendarYear":"2020","revenue":183e9}
		]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", zerolog.Nop())
	series, err := client.GetFinancials(context.Background(), "GOOGL", domain.MetricRevenue, 5)
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.True(t, series.IsChronological())
	assert.Equal(t, 2020, series[0].Period)
	assert.Equal(t, 307e9, series[2].Value)
}

func TestClient_GetPeerFundamentals_SkipsFailedPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/ratios-ttm/MSFT" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"symbol":"AAPL","grossProfitMargin":0.44,"netProfitMargin":0.25,"revenueGrowth":0.06}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", zerolog.Nop())
	peers, err := client.GetPeerFundamentals(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	require.Len(t, peers, 1)
	assert.Equal(t, "AAPL", peers[0].Symbol)
	require.NotNil(t, peers[0].GrossMargin)
	assert.Equal(t, 0.44, *peers[0].GrossMargin)
}

func TestClient_GetConsensus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"estimatedRevenueAvg":340e9,"estimatedEpsAvg":7.1}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", zerolog.Nop())

	revenue, err := client.GetConsensus(context.Background(), "GOOGL", domain.MetricRevenue)
	require.NoError(t, err)
	assert.Equal(t, 340e9, revenue)

	eps, err := client.GetConsensus(context.Background(), "GOOGL", domain.MetricEPS)
	require.NoError(t, err)
	assert.Equal(t, 7.1, eps)
}

// countingSource records fetches so tests can observe cache hits.
type countingSource struct {
	quoteCalls int
}

func (s *countingSource) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	s.quoteCalls++
	return domain.Quote{Symbol: symbol, Price: 100}, nil
}

func (s *countingSource) GetFinancials(ctx context.Context, symbol string, metric domain.Metric, periods int) (domain.HistoricalSeries, error) {
	return domain.HistoricalSeries{{Period: 2023, Value: 1}}, nil
}

func (s *countingSource) GetPeerFundamentals(ctx context.Context, symbols []string) ([]domain.PeerFundamentals, error) {
	return []domain.PeerFundamentals{{Symbol: "AAPL"}}, nil
}

func (s *countingSource) GetConsensus(ctx context.Context, symbol string, metric domain.Metric) (float64, error) {
	return 42, nil
}

func newCacheDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:" + t.Name() + "?mode=memory&cache=shared",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCachedProvider_ServesFromCache(t *testing.T) {
	source := &countingSource{}
	provider := NewCachedProvider(source, newCacheDB(t), time.Minute, zerolog.Nop())

	first, err := provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)
	second, err := provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.quoteCalls, "second call must hit the cache")
}

func TestCachedProvider_ExpiredEntriesRefetch(t *testing.T) {
	source := &countingSource{}
	provider := NewCachedProvider(source, newCacheDB(t), time.Nanosecond, zerolog.Nop())

	_, err := provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, 2, source.quoteCalls)
}

func TestCachedProvider_NilDatabaseDegradesToDirect(t *testing.T) {
	source := &countingSource{}
	provider := NewCachedProvider(source, nil, time.Minute, zerolog.Nop())

	_, err := provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)
	_, err = provider.GetQuote(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, 2, source.quoteCalls)
}
