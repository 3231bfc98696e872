package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/service/provider"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	defaultCollectInterval = 5 * time.Minute
	defaultRecentRunsLimit = 20
	errorMessageMaxLength  = 1024
	asyncCollectTimeout    = 2 * time.Minute
)

var (
	ErrFetchFailed     = errors.New("failed to fetch events from provider")
	ErrStoreFailed     = errors.New("failed to store any event")
	ErrPublishFailed   = errors.New("failed to publish odds collected event")
	ErrInvalidProvider = errors.New("invalid provider")
)

type sportEventRepository interface {
	UpsertEventData(ctx context.Context, data *entity.SportEventData) error
}

type collectionRunRepository interface {
	Create(ctx context.Context, run *entity.CollectionRun) error
	FindLatest(ctx context.Context, limit int) ([]entity.CollectionRun, error)
}

// validator is implemented by providers that can reject a collection before
// any request is made, such as a missing api key.
type validator interface {
	Validate(league string) error
}

type CollectorService struct {
	providers map[entity.ProviderKey]entity.Provider
	eventRepo sportEventRepository
	runRepo   collectionRunRepository
	js        nats.JetStreamContext
	targets   []config.CollectionTargetConfig
	interval  time.Duration
	store     bool
}

func NewCollectorService(providers map[entity.ProviderKey]entity.Provider, eventRepo sportEventRepository, runRepo collectionRunRepository, js nats.JetStreamContext, cfg config.CollectorConfig) *CollectorService {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultCollectInterval
	}

	return &CollectorService{
		providers: providers,
		eventRepo: eventRepo,
		runRepo:   runRepo,
		js:        js,
		targets:   cfg.Targets,
		interval:  interval,
		store:     cfg.Store,
	}
}

func (s *CollectorService) JetstreamEventInit(ctx context.Context) error {
	if s.js == nil {
		return nil
	}

	return infrastructure.EnsureStream(ctx, s.js, infrastructure.OddsStreamConfig())
}

// Run collects every configured target once immediately and then on every tick.
func (s *CollectorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.CollectAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CollectAll(ctx)
		}
	}
}

func (s *CollectorService) CollectAll(ctx context.Context) {
	for _, target := range s.targets {
		if ctx.Err() != nil {
			return
		}

		result, err := s.Collect(ctx, entity.ProviderKey(target.Provider), target.League, s.store)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"provider": target.Provider,
				"league":   target.League,
			}).WithError(err).Error("collection failed")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"run_id":   result.RunID,
			"provider": target.Provider,
			"league":   target.League,
			"events":   len(result.Events),
			"offers":   result.Offers,
			"failed":   result.Failed,
		}).Info("collection finished")
	}
}

// Collect fetches one league from a provider. When store is set every event is
// upserted, the run is recorded and an odds collected event is published with
// the ids of the stored events.
func (s *CollectorService) Collect(ctx context.Context, key entity.ProviderKey, league string, store bool) (*entity.CollectionResult, error) {
	p, key, err := s.resolveProvider(key)
	if err != nil {
		return nil, err
	}

	return s.collect(ctx, uuid.NewString(), p, key, league, store)
}

// CollectAsync starts a collection in the background and returns its run id.
func (s *CollectorService) CollectAsync(key entity.ProviderKey, league string, store bool) (string, error) {
	p, key, err := s.resolveProvider(key)
	if err != nil {
		return "", err
	}

	league = strings.ToLower(strings.TrimSpace(league))
	if !slices.Contains(p.Leagues(), league) {
		return "", fmt.Errorf("%w: %s", provider.ErrUnsupportedLeague, league)
	}
	if v, ok := p.(validator); ok {
		err := v.Validate(league)
		if err != nil {
			return "", err
		}
	}

	runID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncCollectTimeout)
		defer cancel()

		_, err := s.collect(ctx, runID, p, key, league, store)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"run_id":   runID,
				"provider": key,
				"league":   league,
			}).WithError(err).Error("background collection failed")
		}
	}()

	return runID, nil
}

func (s *CollectorService) resolveProvider(key entity.ProviderKey) (entity.Provider, entity.ProviderKey, error) {
	key = entity.ProviderKey(strings.ToLower(strings.TrimSpace(string(key))))
	if !key.IsValid() {
		return nil, key, fmt.Errorf("%w: %q", ErrInvalidProvider, key)
	}

	p, ok := s.providers[key]
	if !ok {
		return nil, key, fmt.Errorf("%w: %s", provider.ErrProviderNotFound, key)
	}

	return p, key, nil
}

func (s *CollectorService) collect(ctx context.Context, runID string, p entity.Provider, key entity.ProviderKey, league string, store bool) (*entity.CollectionResult, error) {
	league = strings.ToLower(strings.TrimSpace(league))
	run := &entity.CollectionRun{
		ID:        runID,
		Provider:  string(key),
		League:    league,
		StartedAt: time.Now().UTC(),
	}

	events, err := p.FetchEvents(ctx, league)
	if err != nil {
		if errors.Is(err, provider.ErrUnsupportedLeague) || errors.Is(err, provider.ErrMissingAPIKey) {
			return nil, err
		}

		s.finishRun(ctx, run, entity.CollectionStatusFailed, err, store)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	result := &entity.CollectionResult{
		RunID:    run.ID,
		Provider: key,
		League:   league,
		Events:   events,
		Stored:   store,
	}

	if !store {
		for _, data := range events {
			result.Offers += len(data.Offers)
		}
		return result, nil
	}

	storedIDs := make([]string, 0, len(events))
	var lastErr error
	for i := range events {
		data := &events[i]
		err := s.eventRepo.UpsertEventData(ctx, data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"provider": key,
				"event_id": data.Event.ID,
			}).WithError(err).Error("failed to store event")
			result.Failed++
			lastErr = err
			continue
		}

		result.Offers += len(data.Offers)
		storedIDs = append(storedIDs, data.Event.ID)
	}

	run.Events = len(storedIDs)
	run.Offers = result.Offers
	run.FailedEvents = result.Failed

	switch {
	case result.Failed == 0:
		s.finishRun(ctx, run, entity.CollectionStatusSuccess, nil, true)
	case len(storedIDs) > 0:
		s.finishRun(ctx, run, entity.CollectionStatusPartial, lastErr, true)
	default:
		s.finishRun(ctx, run, entity.CollectionStatusFailed, lastErr, true)
		return result, fmt.Errorf("%w: %w", ErrStoreFailed, lastErr)
	}

	if len(storedIDs) > 0 {
		err = s.publishCollected(run, storedIDs)
		if err != nil {
			logrus.WithField("run_id", run.ID).WithError(err).Error("failed to publish odds collected event")
		}
	}

	return result, nil
}

func (s *CollectorService) GetRecentRuns(ctx context.Context, limit int) ([]entity.CollectionRun, error) {
	if limit <= 0 {
		limit = defaultRecentRunsLimit
	}

	return s.runRepo.FindLatest(ctx, limit)
}

func (s *CollectorService) finishRun(ctx context.Context, run *entity.CollectionRun, status entity.CollectionStatus, cause error, record bool) {
	run.Status = status
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	if cause != nil {
		msg := util.TruncateText(cause.Error(), errorMessageMaxLength)
		run.ErrorMessage = sql.NullString{String: msg, Valid: true}
	}

	if !record || s.runRepo == nil {
		return
	}

	err := s.runRepo.Create(ctx, run)
	if err != nil {
		logrus.WithField("run_id", run.ID).WithError(err).Error("failed to record collection run")
	}
}

func (s *CollectorService) publishCollected(run *entity.CollectionRun, eventIDs []string) error {
	if s.js == nil {
		logrus.WithField("run_id", run.ID).Debug("jetstream disabled, skip publishing")
		return nil
	}

	event := entity.OddsCollectedEvent{
		RetryCount: 0,
		Data: entity.OddsCollectedData{
			RunID:       run.ID,
			Provider:    run.Provider,
			League:      run.League,
			EventIDs:    eventIDs,
			CollectedAt: run.StartedAt,
		},
	}

	err := util.PublishEvent(s.js, constant.GetOddsCollectedSubject(run.Provider), event)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
