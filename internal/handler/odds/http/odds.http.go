package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/collector"
	"github.com/krobus00/odds-tracker/internal/service/linemovement"
	"github.com/krobus00/odds-tracker/internal/service/odds"
	"github.com/krobus00/odds-tracker/internal/service/provider"
	"github.com/krobus00/odds-tracker/internal/service/team"
	"github.com/sirupsen/logrus"
)

var (
	errAPIKeyMissing  = errors.New("api key is required")
	errAPIKeyInvalid  = errors.New("invalid api key")
	errAPIKeyInactive = errors.New("api key is inactive")
	errAPIKeyExpired  = errors.New("api key is expired")
)

type collectorService interface {
	Collect(ctx context.Context, key entity.ProviderKey, league string, store bool) (*entity.CollectionResult, error)
	CollectAsync(key entity.ProviderKey, league string, store bool) (string, error)
	GetRecentRuns(ctx context.Context, limit int) ([]entity.CollectionRun, error)
}

type oddsService interface {
	GetEvents(ctx context.Context, page entity.Page) (*entity.PaginatedResponse[entity.SportEvent], error)
	GetEvent(ctx context.Context, id string, filter repository.OfferFilter) (*entity.SportEventData, error)
	GetEventOffers(ctx context.Context, id string, offerType entity.OfferType, rangeQuery bool) ([]entity.EventOffer, error)
}

type lineMovementService interface {
	GetAllLineMovements(ctx context.Context) ([]entity.LineMovement, error)
	GetLineMovement(ctx context.Context, eventID string) (*entity.LineMovement, error)
}

type teamService interface {
	GetTeams(ctx context.Context) ([]entity.Team, error)
	GetTeamEvents(ctx context.Context, abbr string) ([]entity.SportEvent, error)
	GetTeamEventOffers(ctx context.Context, abbr string) ([]entity.EventOffer, error)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	collectorService    collectorService
	oddsService         oddsService
	lineMovementService lineMovementService
	teamService         teamService
	healthCheck         HealthCheck
	websocket           http.HandlerFunc
	startupTime         time.Time
}

func NewOddsHTTPHandler(collectorService collectorService, oddsService oddsService, lineMovementService lineMovementService, teamService teamService) *Handler {
	return &Handler{
		collectorService:    collectorService,
		oddsService:         oddsService,
		lineMovementService: lineMovementService,
		teamService:         teamService,
		startupTime:         time.Now().UTC(),
	}
}

func (h *Handler) WithHealthCheck(check HealthCheck) *Handler {
	h.healthCheck = check
	return h
}

func (h *Handler) WithWebsocket(handler http.HandlerFunc) *Handler {
	h.websocket = handler
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health)
	r.Get("/healthz", h.Healthz)
	r.Post("/collect", h.Collect)
	r.Get("/collections", h.GetCollections)
	r.Get("/events", h.GetEvents)
	r.Get("/event/{id}", h.GetEvent)
	r.Get("/event/{id}/offers", h.GetEventOffers)
	r.Get("/event/{id}/offers/{offer}", h.GetEventOffers)
	r.Get("/event/{id}/changes", h.GetEventChanges)
	r.Get("/changes", h.GetChanges)
	r.Get("/teams", h.GetTeams)
	r.Get("/team/{abbr}/events", h.GetTeamEvents)
	r.Get("/team/{abbr}/offers", h.GetTeamOffers)
	if h.websocket != nil {
		r.Get("/ws/line-moves", h.websocket)
	}

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entity.HealthStatus{
		Status:      "running",
		Timestamp:   time.Now().UTC(),
		Version:     config.ServiceVersion,
		StartupTime: h.startupTime,
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "database unavailable"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	query := r.URL.Query()
	providerKey := entity.ProviderKey(strings.ToLower(strings.TrimSpace(query.Get("provider"))))
	if providerKey == "" {
		providerKey = entity.ProviderKambi
	}
	league := strings.TrimSpace(query.Get("league"))
	if league == "" {
		league = "nfl"
	}

	store, err := parseBoolParam(query.Get("store"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid store parameter"})
		return
	}
	async, err := parseBoolParam(query.Get("async"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid async parameter"})
		return
	}

	if async {
		runID, err := h.collectorService.CollectAsync(providerKey, league, store)
		if err != nil {
			writeCollectError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, entity.CollectionResponse{
			Status:      entity.CollectionStatusQueued,
			Version:     config.ServiceVersion,
			ProviderKey: providerKey,
			League:      strings.ToLower(league),
			RunID:       runID,
		})
		return
	}

	result, err := h.collectorService.Collect(r.Context(), providerKey, league, store)
	if err != nil {
		writeCollectError(w, err)
		return
	}

	status := entity.CollectionStatusSuccess
	if result.Failed > 0 {
		status = entity.CollectionStatusPartial
	}

	writeJSON(w, http.StatusOK, entity.CollectionResponse{
		Status:      status,
		Collected:   len(result.Events),
		Offers:      result.Offers,
		Failed:      result.Failed,
		Version:     config.ServiceVersion,
		ProviderKey: result.Provider,
		League:      result.League,
		RunID:       result.RunID,
	})
}

func (h *Handler) GetCollections(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
		return
	}

	runs, err := h.collectorService.GetRecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseIntParam(query.Get("limit"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
		return
	}
	offset, err := parseIntParam(query.Get("offset"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid offset"})
		return
	}

	resp, err := h.oddsService.GetEvents(r.Context(), entity.Page{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.OfferFilter{Bookmaker: strings.TrimSpace(query.Get("bookmaker"))}
	if raw := strings.TrimSpace(query.Get("offer_type")); raw != "" {
		offerType, err := entity.ParseOfferType(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		filter.OfferType = offerType
	}

	data, err := h.oddsService.GetEvent(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// GetEventOffers serves both /event/{id}/offers and /event/{id}/offers/{offer}.
func (h *Handler) GetEventOffers(w http.ResponseWriter, r *http.Request) {
	var offerType entity.OfferType
	if raw := chi.URLParam(r, "offer"); raw != "" {
		parsed, err := entity.ParseOfferType(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		offerType = parsed
	}

	rangeQuery, err := parseBoolParam(r.URL.Query().Get("range"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid range parameter"})
		return
	}

	offers, err := h.oddsService.GetEventOffers(r.Context(), chi.URLParam(r, "id"), offerType, rangeQuery)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, offers)
}

func (h *Handler) GetChanges(w http.ResponseWriter, r *http.Request) {
	movements, err := h.lineMovementService.GetAllLineMovements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, movements)
}

func (h *Handler) GetEventChanges(w http.ResponseWriter, r *http.Request) {
	movement, err := h.lineMovementService.GetLineMovement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, movement)
}

func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.GetTeams(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}

func (h *Handler) GetTeamEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.teamService.GetTeamEvents(r.Context(), chi.URLParam(r, "abbr"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) GetTeamOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.teamService.GetTeamEventOffers(r.Context(), chi.URLParam(r, "abbr"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, offers)
}

func writeCollectError(w http.ResponseWriter, err error) {
	var statusErr *provider.StatusError
	switch {
	case errors.Is(err, collector.ErrInvalidProvider),
		errors.Is(err, provider.ErrProviderNotFound),
		errors.Is(err, provider.ErrUnsupportedLeague),
		errors.Is(err, provider.ErrMissingAPIKey):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.As(err, &statusErr), errors.Is(err, collector.ErrFetchFailed):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	default:
		writeError(w, err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, odds.ErrEventNotFound),
		errors.Is(err, linemovement.ErrEventNotFound),
		errors.Is(err, team.ErrTeamNotFound),
		errors.Is(err, team.ErrEventNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, odds.ErrInvalidPage):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		logrus.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseBoolParam(raw string, fallback bool) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	return strconv.ParseBool(raw)
}

func parseIntParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	return strconv.Atoi(raw)
}

// authorize checks X-API-Key when api keys are configured. Without configured
// keys the endpoint is open.
func authorize(r *http.Request) error {
	if config.Env == nil || len(config.Env.APIKeys) == 0 {
		return nil
	}

	return validateAPIKey(r.Header.Get("X-API-Key"))
}

func validateAPIKey(rawAPIKey string) error {
	apiKey := strings.TrimSpace(rawAPIKey)
	if apiKey == "" {
		return errAPIKeyMissing
	}

	key := findAPIKey(apiKey)
	switch {
	case key == nil:
		return errAPIKeyInvalid
	case !key.Active:
		return errAPIKeyInactive
	case !key.ExpiredAt.IsZero() && !time.Now().Before(key.ExpiredAt):
		return errAPIKeyExpired
	default:
		return nil
	}
}

func findAPIKey(apiKey string) *config.APIKeyConfig {
	if config.Env == nil {
		return nil
	}

	for i := range config.Env.APIKeys {
		candidate := &config.Env.APIKeys[i]
		stored := strings.TrimSpace(candidate.Key)
		if stored != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(stored)) == 1 {
			return candidate
		}
	}

	return nil
}
