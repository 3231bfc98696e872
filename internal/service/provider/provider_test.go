package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureServer(t *testing.T, fixture string, check func(r *http.Request)) *httptest.Server {
	t.Helper()

	body, err := os.ReadFile(fixture)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func findOffer(t *testing.T, offers []entity.EventOffer, offerType entity.OfferType, choice string) entity.EventOffer {
	t.Helper()

	for _, o := range offers {
		if o.OfferType == offerType && o.Choice == choice {
			return o
		}
	}
	t.Fatalf("offer %s/%s not found", offerType, choice)

	return entity.EventOffer{}
}

func TestKambiProvider_FetchEvents(t *testing.T) {
	srv := fixtureServer(t, "testdata/kambi_nfl.json", func(r *http.Request) {
		assert.Equal(t, "/listView/american_football/nfl/all/all/matches.json", r.URL.Path)
		assert.Equal(t, "en_US", r.URL.Query().Get("lang"))
		assert.Equal(t, "US", r.URL.Query().Get("market"))
		assert.Equal(t, "true", r.URL.Query().Get("includeParticipants"))
	})

	p := NewKambiProvider(config.KambiConfig{BaseURL: srv.URL}, srv.Client())

	events, err := p.FetchEvents(context.Background(), "NFL")
	require.NoError(t, err)
	require.Len(t, events, 1, "event with an invalid start time is skipped")

	data := events[0]
	assert.Equal(t, "1019876543", data.Event.ID)
	assert.Equal(t, "american_football_nfl", data.Event.SportKey)
	assert.Equal(t, "NFL", data.Event.SportTitle)
	assert.Equal(t, "MIA Dolphins", data.Event.HomeTeam)
	assert.Equal(t, "NY Giants", data.Event.AwayTeam)
	assert.True(t, data.Event.CommenceTime.Equal(time.Date(2026, 10, 25, 17, 0, 0, 0, time.UTC)))

	// 2 h2h + 2 spreads + 1 totals (zero odds dropped), player props skipped
	require.Len(t, data.Offers, 5)

	h2h := findOffer(t, data.Offers, entity.OfferTypeH2H, "MIA Dolphins")
	assert.Equal(t, "kambi", h2h.Bookmaker)
	assert.True(t, h2h.Price.Equal(decimal.RequireFromString("1.85")))
	assert.False(t, h2h.Point.Valid)

	spread := findOffer(t, data.Offers, entity.OfferTypeSpreads, "NY Giants")
	assert.True(t, spread.Price.Equal(decimal.RequireFromString("1.91")))
	require.True(t, spread.Point.Valid)
	assert.True(t, spread.Point.Decimal.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, spread.Timestamp.Equal(time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)))

	total := findOffer(t, data.Offers, entity.OfferTypeTotals, "Over")
	assert.True(t, total.Point.Decimal.Equal(decimal.RequireFromString("44.5")))
}

func TestKambiProvider_UnsupportedLeague(t *testing.T) {
	p := NewKambiProvider(config.KambiConfig{BaseURL: "http://127.0.0.1:0"}, nil)

	_, err := p.FetchEvents(context.Background(), "nba")
	assert.ErrorIs(t, err, ErrUnsupportedLeague)
}

func TestKambiSportKey(t *testing.T) {
	assert.Equal(t, "american_football_nfl", kambiSportKey("AMERICAN_FOOTBALL", "NFL"))
	assert.Equal(t, "american_football_ncaaf", kambiSportKey("_AMERICAN_FOOTBALL_", "NCAAF"))
}

func TestTheOddsAPIProvider_FetchEvents(t *testing.T) {
	srv := fixtureServer(t, "testdata/theoddsapi_nfl.json", func(r *http.Request) {
		assert.Equal(t, "/v4/sports/americanfootball_nfl/odds", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "us2", q.Get("regions"))
		assert.Equal(t, "h2h,spreads,totals", q.Get("markets"))
		assert.Equal(t, "decimal", q.Get("oddsFormat"))
		assert.Equal(t, "iso", q.Get("dateFormat"))
	})

	p := NewTheOddsAPIProvider(config.TheOddsAPIConfig{BaseURL: srv.URL, APIKey: "secret"}, srv.Client())

	events, err := p.FetchEvents(context.Background(), "nfl")
	require.NoError(t, err)
	require.Len(t, events, 1)

	data := events[0]
	assert.Equal(t, "e912304de2b2ce35b473ce2ecd3d1502", data.Event.ID)
	assert.Equal(t, "americanfootball_nfl", data.Event.SportKey)
	require.Len(t, data.Offers, 4, "unknown markets are skipped")

	h2h := findOffer(t, data.Offers, entity.OfferTypeH2H, "New York Giants")
	assert.Equal(t, "betrivers", h2h.Bookmaker)
	assert.True(t, h2h.Price.Equal(decimal.RequireFromString("2.05")))
	assert.True(t, h2h.Timestamp.Equal(time.Date(2026, 10, 19, 9, 59, 0, 0, time.UTC)), "market last_update wins")

	spread := findOffer(t, data.Offers, entity.OfferTypeSpreads, "Miami Dolphins")
	require.True(t, spread.Point.Valid)
	assert.True(t, spread.Point.Decimal.Equal(decimal.RequireFromString("-2.5")))
	assert.True(t, spread.Timestamp.Equal(time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)), "falls back to bookmaker last_update")
}

func TestTheOddsAPIProvider_MissingAPIKey(t *testing.T) {
	p := NewTheOddsAPIProvider(config.TheOddsAPIConfig{BaseURL: "http://127.0.0.1:0"}, nil)

	_, err := p.FetchEvents(context.Background(), "nfl")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, p.Validate("nfl"), ErrMissingAPIKey)
	assert.ErrorIs(t, p.Validate("mlb"), ErrUnsupportedLeague)

	p = NewTheOddsAPIProvider(config.TheOddsAPIConfig{APIKey: "secret"}, nil)
	assert.NoError(t, p.Validate("ncaaf"))
}

func TestGetJSON_StatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	var out []theOddsAPIEvent
	err := getJSON(context.Background(), srv.Client(), entity.ProviderTheOddsAPI, srv.URL, nil, &out)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid api key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestGetJSON_StatusErrorBodyIsValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("x" + strings.Repeat("é", providerErrorBodyPreview)))
	}))
	defer srv.Close()

	var out []theOddsAPIEvent
	err := getJSON(context.Background(), srv.Client(), entity.ProviderTheOddsAPI, srv.URL, nil, &out)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, utf8.ValidString(statusErr.Body))
	assert.Equal(t, providerErrorBodyPreview-1, len(statusErr.Body))
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var out []theOddsAPIEvent
	err := getJSON(context.Background(), srv.Client(), entity.ProviderTheOddsAPI, srv.URL, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRegisterProvider(t *testing.T) {
	p := NewKambiProvider(config.KambiConfig{}, nil)
	RegisterProvider(p)
	t.Cleanup(func() { delete(GlobalProviderRegistry, entity.ProviderKambi) })

	got, ok := GlobalProviderRegistry[entity.ProviderKambi]
	require.True(t, ok)
	assert.Equal(t, entity.ProviderKambi, got.Key())
}
