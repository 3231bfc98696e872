package linemovement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/oddsmath"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrLoadOffersFailed = errors.New("failed to load event offers")
)

type sportEventRepository interface {
	FindAll(ctx context.Context, page entity.Page) ([]entity.SportEvent, error)
	FindByID(ctx context.Context, id string) (*entity.SportEvent, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.SportEvent, error)
}

type eventOfferRepository interface {
	FindByEventID(ctx context.Context, eventID string, filter repository.OfferFilter) ([]entity.EventOffer, error)
}

// Cache stores computed reports per event.
type Cache interface {
	Get(ctx context.Context, eventID string) (*entity.LineMovement, bool, error)
	Save(ctx context.Context, movement entity.LineMovement) error
}

type LineMovementService struct {
	eventRepo      sportEventRepository
	offerRepo      eventOfferRepository
	cache          Cache
	priceThreshold decimal.Decimal
	pointThreshold decimal.Decimal
	now            func() time.Time
}

func NewLineMovementService(eventRepo sportEventRepository, offerRepo eventOfferRepository, cache Cache, cfg config.LineMovementConfig) *LineMovementService {
	return &LineMovementService{
		eventRepo:      eventRepo,
		offerRepo:      offerRepo,
		cache:          cache,
		priceThreshold: decimal.NewFromFloat(cfg.PriceThreshold).Abs(),
		pointThreshold: decimal.NewFromFloat(cfg.PointThreshold).Abs(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// GetAllLineMovements returns the report of every event that moved. Cached
// reports are used when present.
func (s *LineMovementService) GetAllLineMovements(ctx context.Context) ([]entity.LineMovement, error) {
	events, err := s.eventRepo.FindAll(ctx, entity.Page{})
	if err != nil {
		logrus.WithError(err).Error("failed to load events for line movement")
		return nil, err
	}

	movements := make([]entity.LineMovement, 0)
	for _, event := range events {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		movement, err := s.cachedOrCompute(ctx, event)
		if err != nil {
			return nil, err
		}
		if movement.HasChanges() {
			movements = append(movements, *movement)
		}
	}

	return movements, nil
}

// GetLineMovement returns the report of a single event, with an empty change
// list when nothing moved.
func (s *LineMovementService) GetLineMovement(ctx context.Context, eventID string) (*entity.LineMovement, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		logrus.WithField("event_id", eventID).WithError(err).Error("failed to load event")
		return nil, err
	}

	return s.cachedOrCompute(ctx, *event)
}

// Refresh recomputes and caches the reports of the given events and returns
// the ones with changes.
func (s *LineMovementService) Refresh(ctx context.Context, eventIDs []string) ([]entity.LineMovement, error) {
	events, err := s.eventRepo.FindByIDs(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	movements := make([]entity.LineMovement, 0)
	for _, event := range events {
		movement, err := s.Compute(ctx, event)
		if err != nil {
			return nil, err
		}

		s.saveCache(ctx, *movement)

		if movement.HasChanges() {
			movements = append(movements, *movement)
		}
	}

	return movements, nil
}

func (s *LineMovementService) Compute(ctx context.Context, event entity.SportEvent) (*entity.LineMovement, error) {
	offers, err := s.offerRepo.FindByEventID(ctx, event.ID, repository.OfferFilter{})
	if err != nil {
		logrus.WithField("event_id", event.ID).WithError(err).Error("failed to load offers")
		return nil, fmt.Errorf("%w: %s", ErrLoadOffersFailed, event.ID)
	}

	return &entity.LineMovement{
		EventID:      event.ID,
		SportKey:     event.SportKey,
		HomeTeam:     event.HomeTeam,
		AwayTeam:     event.AwayTeam,
		CommenceTime: event.CommenceTime,
		DetectedAt:   s.now(),
		Changes:      DetectChanges(offers, s.priceThreshold, s.pointThreshold),
	}, nil
}

func (s *LineMovementService) cachedOrCompute(ctx context.Context, event entity.SportEvent) (*entity.LineMovement, error) {
	if s.cache != nil {
		movement, ok, err := s.cache.Get(ctx, event.ID)
		if err != nil {
			logrus.WithField("event_id", event.ID).WithError(err).Warn("line movement cache read failed")
		}
		if ok {
			return movement, nil
		}
	}

	movement, err := s.Compute(ctx, event)
	if err != nil {
		return nil, err
	}

	s.saveCache(ctx, *movement)

	return movement, nil
}

func (s *LineMovementService) saveCache(ctx context.Context, movement entity.LineMovement) {
	if s.cache == nil {
		return
	}

	err := s.cache.Save(ctx, movement)
	if err != nil {
		logrus.WithField("event_id", movement.EventID).WithError(err).Warn("line movement cache write failed")
	}
}

// DetectChanges compares the two most recent snapshots of every market outcome.
// A change is kept when the absolute price or point delta is strictly greater
// than its threshold, or when a point appears or disappears.
func DetectChanges(offers []entity.EventOffer, priceThreshold, pointThreshold decimal.Decimal) []entity.OfferChange {
	grouped := entity.GroupOffersByKey(offers)

	changes := make([]entity.OfferChange, 0)
	for _, key := range entity.SortedOfferKeys(grouped) {
		snapshots := grouped[key]
		if len(snapshots) < 2 {
			continue
		}

		current, previous := snapshots[0], snapshots[1]
		change := entity.OfferChange{
			Bookmaker:         key.Bookmaker,
			OfferType:         key.OfferType,
			Choice:            key.Choice,
			PreviousPrice:     previous.Price,
			CurrentPrice:      current.Price,
			PriceChange:       current.Price.Sub(previous.Price),
			PreviousPoint:     previous.Point,
			CurrentPoint:      current.Point,
			PreviousTimestamp: previous.Timestamp,
			CurrentTimestamp:  current.Timestamp,
		}

		pointMoved := false
		switch {
		case previous.Point.Valid && current.Point.Valid:
			delta := current.Point.Decimal.Sub(previous.Point.Decimal)
			change.PointChange = decimal.NewNullDecimal(delta)
			pointMoved = delta.Abs().GreaterThan(pointThreshold)
		case previous.Point.Valid != current.Point.Valid:
			pointMoved = true
		}

		priceMoved := change.PriceChange.Abs().GreaterThan(priceThreshold)
		if !priceMoved && !pointMoved {
			continue
		}

		if shift, err := oddsmath.ProbabilityShift(previous.Price, current.Price); err == nil {
			change.ProbabilityChange = shift
		}

		changes = append(changes, change)
	}

	return changes
}
