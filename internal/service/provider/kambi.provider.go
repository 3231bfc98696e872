package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultKambiBaseURL    = "https://eu-offering-api.kambicdn.com/offering/v2018/ilaniuswarl"
	defaultKambiSportsbook = "ilani Casino"
	kambiBookmaker         = "kambi"
)

// Kambi quotes odds and lines in thousandths.
var kambiScale = decimal.NewFromInt(1000)

var kambiLeaguePaths = map[string]string{
	"nfl":   "american_football/nfl",
	"ncaaf": "american_football/ncaaf",
}

type KambiProvider struct {
	sportsbook string
	baseURL    string
	httpClient *http.Client
}

type kambiListViewResponse struct {
	Events []kambiEventWrapper `json:"events"`
}

type kambiEventWrapper struct {
	Event     kambiEvent      `json:"event"`
	BetOffers []kambiBetOffer `json:"betOffers"`
}

type kambiEvent struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	HomeName string `json:"homeName"`
	AwayName string `json:"awayName"`
	Start    string `json:"start"`
	Group    string `json:"group"`
	Sport    string `json:"sport"`
	State    string `json:"state"`
}

type kambiBetOffer struct {
	ID           int64 `json:"id"`
	EventID      int64 `json:"eventId"`
	BetOfferType struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		EnglishName string `json:"englishName"`
	} `json:"betOfferType"`
	Outcomes []kambiOutcome `json:"outcomes"`
}

type kambiOutcome struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	EnglishLabel   string `json:"englishLabel"`
	Odds           int64  `json:"odds"`
	Line           *int64 `json:"line"`
	Participant    string `json:"participant"`
	ParticipantID  int64  `json:"participantId"`
	Type           string `json:"type"`
	ChangedDate    string `json:"changedDate"`
	OddsFractional string `json:"oddsFractional"`
	OddsAmerican   string `json:"oddsAmerican"`
	Status         string `json:"status"`
}

func NewKambiProvider(cfg config.KambiConfig, httpClient *http.Client) *KambiProvider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultKambiBaseURL
	}

	sportsbook := strings.TrimSpace(cfg.Sportsbook)
	if sportsbook == "" {
		sportsbook = defaultKambiSportsbook
	}

	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout)
	}

	return &KambiProvider{
		sportsbook: sportsbook,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func InitKambiProvider(cfg config.KambiConfig) *KambiProvider {
	p := NewKambiProvider(cfg, nil)
	RegisterProvider(p)

	return p
}

func (p *KambiProvider) Key() entity.ProviderKey {
	return entity.ProviderKambi
}

func (p *KambiProvider) Leagues() []string {
	return []string{"nfl", "ncaaf"}
}

func (p *KambiProvider) URL(league string) (string, error) {
	path, ok := kambiLeaguePaths[normalizeLeague(league)]
	if !ok {
		return "", fmt.Errorf("%w: %s for %s", ErrUnsupportedLeague, league, entity.ProviderKambi)
	}

	return fmt.Sprintf("%s/listView/%s/all/all/matches.json", p.baseURL, path), nil
}

func (p *KambiProvider) queryParams() url.Values {
	params := url.Values{}
	params.Set("lang", "en_US")
	params.Set("market", "US")
	params.Set("useCombined", "true")
	params.Set("useCombinedLive", "true")
	params.Set("includeParticipants", "true")

	return params
}

func (p *KambiProvider) FetchEvents(ctx context.Context, league string) ([]entity.SportEventData, error) {
	endpoint, err := p.URL(league)
	if err != nil {
		return nil, err
	}

	var payload kambiListViewResponse
	err = getJSON(ctx, p.httpClient, p.Key(), endpoint, p.queryParams(), &payload)
	if err != nil {
		logrus.WithField("sportsbook", p.sportsbook).Errorf("failed to fetch events: %v", err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sportsbook": p.sportsbook,
		"league":     league,
		"events":     len(payload.Events),
	}).Info("fetched events from kambi")

	return convertKambiEvents(payload.Events, time.Now().UTC()), nil
}

// convertKambiEvents normalizes Kambi list view events. Events that cannot be
// parsed are logged and skipped.
func convertKambiEvents(events []kambiEventWrapper, collectedAt time.Time) []entity.SportEventData {
	out := make([]entity.SportEventData, 0, len(events))
	for _, wrapper := range events {
		data, err := convertKambiEvent(wrapper, collectedAt)
		if err != nil {
			logrus.WithField("event_id", wrapper.Event.ID).Warnf("skipping kambi event: %v", err)
			continue
		}
		out = append(out, data)
	}

	return out
}

func convertKambiEvent(wrapper kambiEventWrapper, collectedAt time.Time) (entity.SportEventData, error) {
	commenceTime, err := parseProviderTime(wrapper.Event.Start)
	if err != nil {
		return entity.SportEventData{}, fmt.Errorf("invalid start time %q: %w", wrapper.Event.Start, err)
	}

	eventID := strconv.FormatInt(wrapper.Event.ID, 10)
	event := entity.SportEvent{
		ID:           eventID,
		SportKey:     kambiSportKey(wrapper.Event.Sport, wrapper.Event.Group),
		SportTitle:   wrapper.Event.Group,
		CommenceTime: commenceTime,
		HomeTeam:     wrapper.Event.HomeName,
		AwayTeam:     wrapper.Event.AwayName,
	}

	offers := make([]entity.EventOffer, 0)
	for _, betOffer := range wrapper.BetOffers {
		offerType, ok := kambiOfferType(betOffer.BetOfferType.Name)
		if !ok {
			continue
		}

		for _, outcome := range betOffer.Outcomes {
			if outcome.Odds <= 0 {
				continue
			}

			timestamp, err := parseProviderTime(outcome.ChangedDate)
			if err != nil {
				timestamp = collectedAt
			}

			offer := entity.EventOffer{
				EventID:   eventID,
				Bookmaker: kambiBookmaker,
				OfferType: offerType,
				Timestamp: timestamp,
				Price:     decimal.NewFromInt(outcome.Odds).Div(kambiScale),
			}

			if offerType == entity.OfferTypeH2H {
				offer.Choice = outcome.Participant
			} else {
				offer.Choice = kambiLabel(outcome)
				if outcome.Line != nil {
					offer.Point = decimal.NewNullDecimal(decimal.NewFromInt(*outcome.Line).Div(kambiScale))
				}
			}
			if offer.Choice == "" {
				offer.Choice = kambiLabel(outcome)
			}

			offers = append(offers, offer)
		}
	}

	return entity.SportEventData{Event: event, Offers: offers}, nil
}

func kambiOfferType(name string) (entity.OfferType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "match":
		return entity.OfferTypeH2H, true
	case "handicap":
		return entity.OfferTypeSpreads, true
	case "over/under":
		return entity.OfferTypeTotals, true
	default:
		return "", false
	}
}

func kambiLabel(outcome kambiOutcome) string {
	if outcome.EnglishLabel != "" {
		return outcome.EnglishLabel
	}

	return outcome.Label
}

// kambiSportKey builds keys such as american_football_nfl.
func kambiSportKey(sport, group string) string {
	return strings.ToLower(strings.Trim(sport, "_")) + "_" + strings.ToLower(group)
}
