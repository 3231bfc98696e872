package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/entity"
)

var eventOfferColumns = []string{
	"event_id",
	"bookmaker",
	"offer_type",
	"choice",
	"last_update",
	"price",
	"point",
	"updated_at",
}

type OfferFilter struct {
	OfferType entity.OfferType
	Bookmaker string
}

type EventOfferRepository struct {
	db *sqlx.DB
}

func NewEventOfferRepository(db *sqlx.DB) *EventOfferRepository {
	return &EventOfferRepository{db: db}
}

// FindByEventID returns offer snapshots of an event, newest first.
func (r *EventOfferRepository) FindByEventID(ctx context.Context, eventID string, filter OfferFilter) ([]entity.EventOffer, error) {
	conditions := sq.And{sq.Eq{"event_id": eventID}}
	if filter.OfferType != "" {
		conditions = append(conditions, sq.Eq{"offer_type": filter.OfferType})
	}
	if filter.Bookmaker != "" {
		conditions = append(conditions, sq.Eq{"bookmaker": filter.Bookmaker})
	}

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(eventOfferColumns...).
		From(entity.EventOffer{}.TableName()).
		Where(conditions).
		OrderBy("last_update desc", "bookmaker asc", "offer_type asc", "choice asc").
		ToSql()
	if err != nil {
		return nil, err
	}

	offers := make([]entity.EventOffer, 0)
	err = r.db.SelectContext(ctx, &offers, query, args...)
	if err != nil {
		return nil, err
	}

	return offers, nil
}

func upsertOffers(ctx context.Context, tx *sqlx.Tx, offers []entity.EventOffer, now time.Time) error {
	if len(offers) == 0 {
		return nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(entity.EventOffer{}.TableName()).
		Columns(eventOfferColumns...)

	for _, offer := range offers {
		queryBuilder = queryBuilder.Values(
			offer.EventID,
			offer.Bookmaker,
			offer.OfferType,
			offer.Choice,
			offer.Timestamp,
			offer.Price,
			offer.Point,
			now,
		)
	}

	queryBuilder = queryBuilder.Suffix(`ON CONFLICT (event_id, bookmaker, offer_type, choice, last_update)
DO UPDATE SET
	price = EXCLUDED.price,
	point = EXCLUDED.point,
	updated_at = EXCLUDED.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// dedupeOffers keeps the last occurrence of every primary key so a single
// INSERT .. ON CONFLICT statement never touches the same row twice.
func dedupeOffers(offers []entity.EventOffer) []entity.EventOffer {
	type offerPK struct {
		eventID   string
		key       entity.OfferKey
		timestamp int64
	}

	index := make(map[offerPK]int, len(offers))
	result := make([]entity.EventOffer, 0, len(offers))
	for _, offer := range offers {
		pk := offerPK{eventID: offer.EventID, key: offer.Key(), timestamp: offer.Timestamp.UnixNano()}
		if idx, ok := index[pk]; ok {
			result[idx] = offer
			continue
		}

		index[pk] = len(result)
		result = append(result, offer)
	}

	return result
}
