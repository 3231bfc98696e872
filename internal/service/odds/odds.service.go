package odds

import (
	"context"
	"errors"
	"sort"

	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidPage   = errors.New("limit and offset must not be negative")
)

type sportEventRepository interface {
	FindAll(ctx context.Context, page entity.Page) ([]entity.SportEvent, error)
	FindByID(ctx context.Context, id string) (*entity.SportEvent, error)
}

type eventOfferRepository interface {
	FindByEventID(ctx context.Context, eventID string, filter repository.OfferFilter) ([]entity.EventOffer, error)
}

type OddsService struct {
	eventRepo sportEventRepository
	offerRepo eventOfferRepository
}

func NewOddsService(eventRepo sportEventRepository, offerRepo eventOfferRepository) *OddsService {
	return &OddsService{
		eventRepo: eventRepo,
		offerRepo: offerRepo,
	}
}

// NormalizePage applies the default limit and caps it.
func NormalizePage(page entity.Page) (entity.Page, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return page, ErrInvalidPage
	}
	if page.Limit == 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}

	return page, nil
}

func (s *OddsService) GetEvents(ctx context.Context, page entity.Page) (*entity.PaginatedResponse[entity.SportEvent], error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.FindAll(ctx, page)
	if err != nil {
		logrus.WithError(err).Error("failed to list events")
		return nil, err
	}

	return &entity.PaginatedResponse[entity.SportEvent]{
		Data:   events,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

// GetEvent returns the event with its offers. Empty filter fields match all.
func (s *OddsService) GetEvent(ctx context.Context, id string, filter repository.OfferFilter) (*entity.SportEventData, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	offers, err := s.offerRepo.FindByEventID(ctx, id, filter)
	if err != nil {
		logrus.WithField("event_id", id).WithError(err).Error("failed to load offers")
		return nil, err
	}

	return &entity.SportEventData{Event: *event, Offers: offers}, nil
}

// GetEventOffers returns the offers of an event. An empty offer type returns
// every type. With rangeQuery only the oldest and newest snapshot of each
// market outcome are kept.
func (s *OddsService) GetEventOffers(ctx context.Context, id string, offerType entity.OfferType, rangeQuery bool) ([]entity.EventOffer, error) {
	_, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	offers, err := s.offerRepo.FindByEventID(ctx, id, repository.OfferFilter{OfferType: offerType})
	if err != nil {
		logrus.WithField("event_id", id).WithError(err).Error("failed to load offers")
		return nil, err
	}

	if !rangeQuery {
		return offers, nil
	}

	return FirstAndLastSnapshots(offers), nil
}

func (s *OddsService) findEvent(ctx context.Context, id string) (*entity.SportEvent, error) {
	event, err := s.eventRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		logrus.WithField("event_id", id).WithError(err).Error("failed to load event")
		return nil, err
	}

	return event, nil
}

// FirstAndLastSnapshots keeps the oldest and newest snapshot of every market
// outcome, newest first.
func FirstAndLastSnapshots(offers []entity.EventOffer) []entity.EventOffer {
	grouped := entity.GroupOffersByKey(offers)

	result := make([]entity.EventOffer, 0, len(grouped)*2)
	for _, key := range entity.SortedOfferKeys(grouped) {
		snapshots := grouped[key]
		result = append(result, snapshots[0])
		if len(snapshots) > 1 {
			result = append(result, snapshots[len(snapshots)-1])
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result
}
