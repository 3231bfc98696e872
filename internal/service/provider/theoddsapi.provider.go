package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultTheOddsAPIBaseURL    = "https://api.the-odds-api.com"
	defaultTheOddsAPIRegions    = "us2"
	defaultTheOddsAPIMarkets    = "h2h,spreads,totals"
	defaultTheOddsAPIOddsFormat = "decimal"
)

var theOddsAPISportKeys = map[string]string{
	"nfl":   "americanfootball_nfl",
	"ncaaf": "americanfootball_ncaaf",
}

type TheOddsAPIProvider struct {
	baseURL    string
	apiKey     string
	regions    string
	markets    string
	oddsFormat string
	httpClient *http.Client
}

type theOddsAPIEvent struct {
	ID           string                `json:"id"`
	SportKey     string                `json:"sport_key"`
	SportTitle   string                `json:"sport_title"`
	CommenceTime string                `json:"commence_time"`
	HomeTeam     string                `json:"home_team"`
	AwayTeam     string                `json:"away_team"`
	Bookmakers   []theOddsAPIBookmaker `json:"bookmakers"`
}

type theOddsAPIBookmaker struct {
	Key        string             `json:"key"`
	Title      string             `json:"title"`
	LastUpdate string             `json:"last_update"`
	Markets    []theOddsAPIMarket `json:"markets"`
}

type theOddsAPIMarket struct {
	Key        string              `json:"key"`
	LastUpdate string              `json:"last_update"`
	Outcomes   []theOddsAPIOutcome `json:"outcomes"`
}

type theOddsAPIOutcome struct {
	Name  string           `json:"name"`
	Price decimal.Decimal  `json:"price"`
	Point *decimal.Decimal `json:"point"`
}

func NewTheOddsAPIProvider(cfg config.TheOddsAPIConfig, httpClient *http.Client) *TheOddsAPIProvider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultTheOddsAPIBaseURL
	}

	regions := strings.TrimSpace(cfg.Regions)
	if regions == "" {
		regions = defaultTheOddsAPIRegions
	}

	markets := strings.TrimSpace(cfg.Markets)
	if markets == "" {
		markets = defaultTheOddsAPIMarkets
	}

	oddsFormat := strings.TrimSpace(cfg.OddsFormat)
	if oddsFormat == "" {
		oddsFormat = defaultTheOddsAPIOddsFormat
	}

	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout)
	}

	return &TheOddsAPIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		regions:    regions,
		markets:    markets,
		oddsFormat: oddsFormat,
		httpClient: httpClient,
	}
}

func InitTheOddsAPIProvider(cfg config.TheOddsAPIConfig) *TheOddsAPIProvider {
	p := NewTheOddsAPIProvider(cfg, nil)
	RegisterProvider(p)

	return p
}

func (p *TheOddsAPIProvider) Key() entity.ProviderKey {
	return entity.ProviderTheOddsAPI
}

func (p *TheOddsAPIProvider) Leagues() []string {
	return []string{"nfl", "ncaaf"}
}

func (p *TheOddsAPIProvider) URL(league string) (string, error) {
	sportKey, ok := theOddsAPISportKeys[normalizeLeague(league)]
	if !ok {
		return "", fmt.Errorf("%w: %s for %s", ErrUnsupportedLeague, league, entity.ProviderTheOddsAPI)
	}

	return fmt.Sprintf("%s/v4/sports/%s/odds", p.baseURL, sportKey), nil
}

func (p *TheOddsAPIProvider) queryParams() url.Values {
	params := url.Values{}
	params.Set("api_key", p.apiKey)
	params.Set("regions", p.regions)
	params.Set("markets", p.markets)
	params.Set("oddsFormat", p.oddsFormat)
	params.Set("dateFormat", "iso")

	return params
}

// Validate reports whether a fetch of league can be attempted at all.
func (p *TheOddsAPIProvider) Validate(league string) error {
	_, err := p.URL(league)
	if err != nil {
		return err
	}
	if p.apiKey == "" {
		return ErrMissingAPIKey
	}

	return nil
}

func (p *TheOddsAPIProvider) FetchEvents(ctx context.Context, league string) ([]entity.SportEventData, error) {
	err := p.Validate(league)
	if err != nil {
		return nil, err
	}

	endpoint, err := p.URL(league)
	if err != nil {
		return nil, err
	}

	var payload []theOddsAPIEvent
	err = getJSON(ctx, p.httpClient, p.Key(), endpoint, p.queryParams(), &payload)
	if err != nil {
		logrus.WithField("provider", p.Key()).Errorf("failed to fetch events: %v", err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"provider": p.Key(),
		"league":   league,
		"events":   len(payload),
	}).Info("fetched events from theoddsapi")

	return convertTheOddsAPIEvents(payload, time.Now().UTC()), nil
}

func convertTheOddsAPIEvents(events []theOddsAPIEvent, collectedAt time.Time) []entity.SportEventData {
	out := make([]entity.SportEventData, 0, len(events))
	for _, e := range events {
		data, err := convertTheOddsAPIEvent(e, collectedAt)
		if err != nil {
			logrus.WithField("event_id", e.ID).Warnf("skipping theoddsapi event: %v", err)
			continue
		}
		out = append(out, data)
	}

	return out
}

func convertTheOddsAPIEvent(e theOddsAPIEvent, collectedAt time.Time) (entity.SportEventData, error) {
	commenceTime, err := parseProviderTime(e.CommenceTime)
	if err != nil {
		return entity.SportEventData{}, fmt.Errorf("invalid commence time %q: %w", e.CommenceTime, err)
	}

	event := entity.SportEvent{
		ID:           e.ID,
		SportKey:     e.SportKey,
		SportTitle:   e.SportTitle,
		CommenceTime: commenceTime,
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
	}

	offers := make([]entity.EventOffer, 0)
	for _, bookmaker := range e.Bookmakers {
		for _, market := range bookmaker.Markets {
			offerType, err := entity.ParseOfferType(market.Key)
			if err != nil {
				continue
			}

			lastUpdate := market.LastUpdate
			if lastUpdate == "" {
				lastUpdate = bookmaker.LastUpdate
			}
			timestamp, err := parseProviderTime(lastUpdate)
			if err != nil {
				timestamp = collectedAt
			}

			for _, outcome := range market.Outcomes {
				offer := entity.EventOffer{
					EventID:   e.ID,
					Bookmaker: bookmaker.Key,
					OfferType: offerType,
					Choice:    outcome.Name,
					Timestamp: timestamp,
					Price:     outcome.Price,
				}
				if outcome.Point != nil {
					offer.Point = decimal.NewNullDecimal(*outcome.Point)
				}

				offers = append(offers, offer)
			}
		}
	}

	return entity.SportEventData{Event: event, Offers: offers}, nil
}
