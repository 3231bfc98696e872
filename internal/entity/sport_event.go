package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OfferType string

const (
	OfferTypeH2H     OfferType = "h2h"
	OfferTypeSpreads OfferType = "spreads"
	OfferTypeTotals  OfferType = "totals"
)

var SupportedOfferTypes = []OfferType{OfferTypeH2H, OfferTypeSpreads, OfferTypeTotals}

// ParseOfferType accepts the normalized market keys as well as the Kambi bet
// offer type names.
func ParseOfferType(raw string) (OfferType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "h2h", "match", "moneyline":
		return OfferTypeH2H, nil
	case "spreads", "handicap":
		return OfferTypeSpreads, nil
	case "totals", "overunder", "over/under":
		return OfferTypeTotals, nil
	default:
		return "", fmt.Errorf("unsupported offer type %q, expected one of h2h|spreads|totals", raw)
	}
}

type SportEvent struct {
	ID           string    `db:"id" json:"id"`
	SportKey     string    `db:"sport_key" json:"sport_key"`
	SportTitle   string    `db:"sport_title" json:"sport_title"`
	CommenceTime time.Time `db:"commence_time" json:"commence_time"`
	HomeTeam     string    `db:"home_team" json:"home_team"`
	AwayTeam     string    `db:"away_team" json:"away_team"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (e SportEvent) TableName() string {
	return "sport_events"
}

func (e SportEvent) String() string {
	return fmt.Sprintf("%s: %s vs %s", e.ID, e.HomeTeam, e.AwayTeam)
}

type EventOffer struct {
	EventID   string              `db:"event_id" json:"event_id"`
	Bookmaker string              `db:"bookmaker" json:"bookmaker"`
	OfferType OfferType           `db:"offer_type" json:"offer_type"`
	Choice    string              `db:"choice" json:"choice"`
	Timestamp time.Time           `db:"last_update" json:"timestamp"`
	Price     decimal.Decimal     `db:"price" json:"price"`
	Point     decimal.NullDecimal `db:"point" json:"point"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

func (o EventOffer) TableName() string {
	return "event_offers"
}

func (o EventOffer) Key() OfferKey {
	return OfferKey{Bookmaker: o.Bookmaker, OfferType: o.OfferType, Choice: o.Choice}
}

func (o EventOffer) String() string {
	return fmt.Sprintf("%s %s %s @ %s", o.Bookmaker, o.OfferType, o.Choice, o.Price.String())
}

// OfferKey identifies a single market outcome across snapshots.
type OfferKey struct {
	Bookmaker string
	OfferType OfferType
	Choice    string
}

func (k OfferKey) Less(other OfferKey) bool {
	if k.Bookmaker != other.Bookmaker {
		return k.Bookmaker < other.Bookmaker
	}
	if k.OfferType != other.OfferType {
		return k.OfferType < other.OfferType
	}
	return k.Choice < other.Choice
}

type SportEventData struct {
	Event  SportEvent   `json:"event"`
	Offers []EventOffer `json:"offers"`
}

func (d SportEventData) String() string {
	return fmt.Sprintf("Event %s: %s vs %s with %d offers", d.Event.ID, d.Event.HomeTeam, d.Event.AwayTeam, len(d.Offers))
}

func (d SportEventData) ByOfferType(offerType OfferType) SportEventData {
	return d.filter(func(o EventOffer) bool { return o.OfferType == offerType })
}

func (d SportEventData) ByBookmaker(bookmaker string) SportEventData {
	return d.filter(func(o EventOffer) bool { return strings.EqualFold(o.Bookmaker, bookmaker) })
}

func (d SportEventData) filter(keep func(EventOffer) bool) SportEventData {
	offers := make([]EventOffer, 0, len(d.Offers))
	for _, o := range d.Offers {
		if keep(o) {
			offers = append(offers, o)
		}
	}

	return SportEventData{Event: d.Event, Offers: offers}
}

// GroupOffersByKey groups snapshots per market outcome, newest snapshot first.
func GroupOffersByKey(offers []EventOffer) map[OfferKey][]EventOffer {
	grouped := make(map[OfferKey][]EventOffer)
	for _, o := range offers {
		grouped[o.Key()] = append(grouped[o.Key()], o)
	}

	for key := range grouped {
		snapshots := grouped[key]
		sort.SliceStable(snapshots, func(i, j int) bool {
			return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
		})
	}

	return grouped
}

// SortedOfferKeys returns the keys of a grouped offer map in a stable order.
func SortedOfferKeys(grouped map[OfferKey][]EventOffer) []OfferKey {
	keys := make([]OfferKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	return keys
}
