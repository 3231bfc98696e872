package team

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/sirupsen/logrus"
)

//go:embed nfl_teams.json
var nflTeamsJSON []byte

var (
	ErrTeamNotFound  = errors.New("team not found")
	ErrEventNotFound = errors.New("no events found for team")
)

type teamRepository interface {
	UpsertMany(ctx context.Context, teams []entity.Team) error
	FindAll(ctx context.Context) ([]entity.Team, error)
}

type sportEventRepository interface {
	FindByTeamNames(ctx context.Context, names []string) ([]entity.SportEvent, error)
}

type eventOfferRepository interface {
	FindByEventID(ctx context.Context, eventID string, filter repository.OfferFilter) ([]entity.EventOffer, error)
}

type Cache interface {
	Get(ctx context.Context) ([]entity.Team, bool, error)
	Save(ctx context.Context, teams []entity.Team) error
}

type TeamService struct {
	teamRepo  teamRepository
	eventRepo sportEventRepository
	offerRepo eventOfferRepository
	cache     Cache
	now       func() time.Time

	seedMu sync.Mutex
	seeded bool
}

func NewTeamService(teamRepo teamRepository, eventRepo sportEventRepository, offerRepo eventOfferRepository, cache Cache) *TeamService {
	return &TeamService{
		teamRepo:  teamRepo,
		eventRepo: eventRepo,
		offerRepo: offerRepo,
		cache:     cache,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LoadNFLTeams returns the bundled NFL team profiles.
func LoadNFLTeams() ([]entity.Team, error) {
	teams := make([]entity.Team, 0, 32)
	err := json.Unmarshal(nflTeamsJSON, &teams)
	if err != nil {
		return nil, fmt.Errorf("decode bundled teams: %w", err)
	}

	return teams, nil
}

// Seed upserts the bundled teams. It runs once per service instance.
func (s *TeamService) Seed(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if s.seeded {
		return nil
	}

	teams, err := LoadNFLTeams()
	if err != nil {
		return err
	}

	err = s.teamRepo.UpsertMany(ctx, teams)
	if err != nil {
		logrus.WithError(err).Error("failed to seed teams")
		return err
	}

	logrus.WithField("teams", len(teams)).Info("teams seeded")
	s.seeded = true

	return nil
}

func (s *TeamService) GetTeams(ctx context.Context) ([]entity.Team, error) {
	if s.cache != nil {
		teams, ok, err := s.cache.Get(ctx)
		if err != nil {
			logrus.WithError(err).Warn("team cache read failed")
		}
		if ok {
			return teams, nil
		}
	}

	err := s.Seed(ctx)
	if err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to load teams")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, teams); err != nil {
			logrus.WithError(err).Warn("team cache write failed")
		}
	}

	return teams, nil
}

func (s *TeamService) GetTeamByAbbr(ctx context.Context, abbr string) (*entity.Team, error) {
	teams, err := s.GetTeams(ctx)
	if err != nil {
		return nil, err
	}

	abbr = strings.TrimSpace(abbr)
	for i := range teams {
		if strings.EqualFold(teams[i].TeamAbbr, abbr) {
			return &teams[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, abbr)
}

// GetTeamEvents returns the events the team plays in, by commence time.
func (s *TeamService) GetTeamEvents(ctx context.Context, abbr string) ([]entity.SportEvent, error) {
	team, err := s.GetTeamByAbbr(ctx, abbr)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.FindByTeamNames(ctx, team.Names())
	if err != nil {
		logrus.WithField("team", team.TeamAbbr).WithError(err).Error("failed to load team events")
		return nil, err
	}

	return events, nil
}

// GetTeamEventOffers returns the offers of the team's next event. When every
// event already started the earliest one is used.
func (s *TeamService) GetTeamEventOffers(ctx context.Context, abbr string) ([]entity.EventOffer, error) {
	events, err := s.GetTeamEvents(ctx, abbr)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, abbr)
	}

	next := events[0]
	now := s.now()
	for _, event := range events {
		if !event.CommenceTime.Before(now) {
			next = event
			break
		}
	}

	return s.offerRepo.FindByEventID(ctx, next.ID, repository.OfferFilter{})
}
