package linemovement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type fakeEventRepo struct {
	events []entity.SportEvent
	err    error
}

func (f *fakeEventRepo) FindAll(ctx context.Context, page entity.Page) ([]entity.SportEvent, error) {
	return f.events, f.err
}

func (f *fakeEventRepo) FindByID(ctx context.Context, id string) (*entity.SportEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.events {
		if e.ID == id {
			event := e
			return &event, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeEventRepo) FindByIDs(ctx context.Context, ids []string) ([]entity.SportEvent, error) {
	out := make([]entity.SportEvent, 0)
	for _, id := range ids {
		for _, e := range f.events {
			if e.ID == id {
				out = append(out, e)
			}
		}
	}
	return out, f.err
}

type fakeOfferRepo struct {
	offers map[string][]entity.EventOffer
	calls  int
	err    error
}

func (f *fakeOfferRepo) FindByEventID(ctx context.Context, eventID string, filter repository.OfferFilter) ([]entity.EventOffer, error) {
	f.calls++
	return f.offers[eventID], f.err
}

type memoryCache struct {
	items map[string]entity.LineMovement
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]entity.LineMovement)}
}

func (m *memoryCache) Get(ctx context.Context, eventID string) (*entity.LineMovement, bool, error) {
	movement, ok := m.items[eventID]
	if !ok {
		return nil, false, nil
	}
	return &movement, true, nil
}

func (m *memoryCache) Save(ctx context.Context, movement entity.LineMovement) error {
	m.items[movement.EventID] = movement
	return nil
}

func offer(bookmaker string, offerType entity.OfferType, choice, price string, point *string, minutes int) entity.EventOffer {
	o := entity.EventOffer{
		EventID:   "evt-1",
		Bookmaker: bookmaker,
		OfferType: offerType,
		Choice:    choice,
		Timestamp: baseTime.Add(time.Duration(minutes) * time.Minute),
		Price:     decimal.RequireFromString(price),
	}
	if point != nil {
		o.Point = decimal.NewNullDecimal(decimal.RequireFromString(*point))
	}
	return o
}

func ptr(s string) *string { return &s }

func TestDetectChanges(t *testing.T) {
	offers := []entity.EventOffer{
		// price moved
		offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.85", nil, 0),
		offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.80", nil, 5),
		// oldest snapshot ignored, two latest are equal
		offer("kambi", entity.OfferTypeH2H, "NY Giants", "2.20", nil, 0),
		offer("kambi", entity.OfferTypeH2H, "NY Giants", "2.05", nil, 5),
		offer("kambi", entity.OfferTypeH2H, "NY Giants", "2.05", nil, 10),
		// point moved, price flat
		offer("betrivers", entity.OfferTypeSpreads, "Miami Dolphins", "1.91", ptr("-2.5"), 0),
		offer("betrivers", entity.OfferTypeSpreads, "Miami Dolphins", "1.91", ptr("-3"), 5),
		// single snapshot
		offer("betrivers", entity.OfferTypeTotals, "Over", "1.87", ptr("44.5"), 0),
	}

	changes := DetectChanges(offers, decimal.Zero, decimal.Zero)
	require.Len(t, changes, 2)

	// sorted by bookmaker first
	assert.Equal(t, "betrivers", changes[0].Bookmaker)
	assert.Equal(t, entity.OfferTypeSpreads, changes[0].OfferType)
	require.True(t, changes[0].PointChange.Valid)
	assert.Equal(t, "-0.5", changes[0].PointChange.Decimal.String())
	assert.True(t, changes[0].PriceChange.IsZero())

	assert.Equal(t, "kambi", changes[1].Bookmaker)
	assert.Equal(t, "MIA Dolphins", changes[1].Choice)
	assert.Equal(t, "1.85", changes[1].PreviousPrice.String())
	assert.Equal(t, "1.8", changes[1].CurrentPrice.String())
	assert.Equal(t, "-0.05", changes[1].PriceChange.String())
	assert.True(t, changes[1].CurrentTimestamp.After(changes[1].PreviousTimestamp))
	assert.True(t, changes[1].ProbabilityChange.IsPositive())
}

func TestDetectChanges_ThresholdIsStrict(t *testing.T) {
	offers := []entity.EventOffer{
		offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.85", nil, 0),
		offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.90", nil, 5),
	}

	assert.Empty(t, DetectChanges(offers, decimal.RequireFromString("0.05"), decimal.Zero))
	assert.Len(t, DetectChanges(offers, decimal.RequireFromString("0.04"), decimal.Zero), 1)
}

func TestDetectChanges_PointAppears(t *testing.T) {
	offers := []entity.EventOffer{
		offer("kambi", entity.OfferTypeTotals, "Over", "1.87", nil, 0),
		offer("kambi", entity.OfferTypeTotals, "Over", "1.87", ptr("44.5"), 5),
	}

	changes := DetectChanges(offers, decimal.Zero, decimal.NewFromInt(10))
	require.Len(t, changes, 1)
	assert.False(t, changes[0].PreviousPoint.Valid)
	assert.True(t, changes[0].CurrentPoint.Valid)
	assert.False(t, changes[0].PointChange.Valid)
}

func newTestService(events []entity.SportEvent, offers map[string][]entity.EventOffer, cache Cache) (*LineMovementService, *fakeOfferRepo) {
	offerRepo := &fakeOfferRepo{offers: offers}
	svc := NewLineMovementService(&fakeEventRepo{events: events}, offerRepo, cache, config.LineMovementConfig{})
	svc.now = func() time.Time { return baseTime }
	return svc, offerRepo
}

func testEvents() []entity.SportEvent {
	return []entity.SportEvent{
		{ID: "evt-1", SportKey: "americanfootball_nfl", HomeTeam: "Miami Dolphins", AwayTeam: "New York Giants"},
		{ID: "evt-2", SportKey: "americanfootball_nfl", HomeTeam: "Kansas City Chiefs", AwayTeam: "Los Angeles Chargers"},
	}
}

func testOffers() map[string][]entity.EventOffer {
	return map[string][]entity.EventOffer{
		"evt-1": {
			offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.85", nil, 0),
			offer("kambi", entity.OfferTypeH2H, "MIA Dolphins", "1.80", nil, 5),
		},
		"evt-2": {
			offer("kambi", entity.OfferTypeH2H, "KC Chiefs", "1.40", nil, 0),
		},
	}
}

func TestLineMovementService_GetAllLineMovements(t *testing.T) {
	cache := newMemoryCache()
	svc, offerRepo := newTestService(testEvents(), testOffers(), cache)

	movements, err := svc.GetAllLineMovements(context.Background())
	require.NoError(t, err)
	require.Len(t, movements, 1, "events without changes are omitted")
	assert.Equal(t, "evt-1", movements[0].EventID)
	assert.Equal(t, "Miami Dolphins", movements[0].HomeTeam)
	assert.Equal(t, baseTime, movements[0].DetectedAt)
	assert.Len(t, cache.items, 2, "every computed report is cached")
	assert.Equal(t, 2, offerRepo.calls)

	_, err = svc.GetAllLineMovements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, offerRepo.calls, "second call is served from cache")
}

func TestLineMovementService_GetLineMovement(t *testing.T) {
	svc, _ := newTestService(testEvents(), testOffers(), nil)

	movement, err := svc.GetLineMovement(context.Background(), "evt-2")
	require.NoError(t, err)
	assert.False(t, movement.HasChanges())
	assert.NotNil(t, movement.Changes)

	_, err = svc.GetLineMovement(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestLineMovementService_Refresh(t *testing.T) {
	cache := newMemoryCache()
	cache.items["evt-1"] = entity.LineMovement{EventID: "evt-1"}
	svc, _ := newTestService(testEvents(), testOffers(), cache)

	movements, err := svc.Refresh(context.Background(), []string{"evt-1", "evt-2"})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Len(t, cache.items["evt-1"].Changes, 1, "stale cache entry is overwritten")
}

func TestLineMovementService_OfferLoadError(t *testing.T) {
	svc, offerRepo := newTestService(testEvents(), testOffers(), nil)
	offerRepo.err = errors.New("connection refused")

	_, err := svc.Refresh(context.Background(), []string{"evt-1"})
	assert.ErrorIs(t, err, ErrLoadOffersFailed)
}
