package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineMovement struct {
	EventID      string        `json:"event_id"`
	SportKey     string        `json:"sport_key"`
	HomeTeam     string        `json:"home_team"`
	AwayTeam     string        `json:"away_team"`
	CommenceTime time.Time     `json:"commence_time"`
	DetectedAt   time.Time     `json:"detected_at"`
	Changes      []OfferChange `json:"changes"`
}

func (l LineMovement) HasChanges() bool {
	return len(l.Changes) > 0
}

type OfferChange struct {
	Bookmaker         string              `json:"bookmaker"`
	OfferType         OfferType           `json:"offer_type"`
	Choice            string              `json:"choice"`
	PreviousPrice     decimal.Decimal     `json:"previous_price"`
	CurrentPrice      decimal.Decimal     `json:"current_price"`
	PriceChange       decimal.Decimal     `json:"price_change"`
	PreviousPoint     decimal.NullDecimal `json:"previous_point"`
	CurrentPoint      decimal.NullDecimal `json:"current_point"`
	PointChange       decimal.NullDecimal `json:"point_change"`
	ProbabilityChange decimal.Decimal     `json:"probability_change"`
	PreviousTimestamp time.Time           `json:"previous_timestamp"`
	CurrentTimestamp  time.Time           `json:"current_timestamp"`
}
