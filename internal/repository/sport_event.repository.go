package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/entity"
)

const offerInsertChunkSize = 500

var ErrNotFound = errors.New("record not found")

var sportEventColumns = []string{
	"id",
	"sport_key",
	"sport_title",
	"commence_time",
	"home_team",
	"away_team",
	"created_at",
	"updated_at",
}

type SportEventRepository struct {
	db *sqlx.DB
}

func NewSportEventRepository(db *sqlx.DB) *SportEventRepository {
	return &SportEventRepository{db: db}
}

// UpsertEventData stores the event and all of its offer snapshots in a single
// transaction.
func (r *SportEventRepository) UpsertEventData(ctx context.Context, data *entity.SportEventData) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if data.Event.CreatedAt.IsZero() {
		data.Event.CreatedAt = now
	}
	data.Event.UpdatedAt = now

	err = r.upsertEvent(ctx, tx, &data.Event)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", data.Event.ID, err)
	}

	offers := dedupeOffers(data.Offers)
	for start := 0; start < len(offers); start += offerInsertChunkSize {
		end := start + offerInsertChunkSize
		if end > len(offers) {
			end = len(offers)
		}

		err = upsertOffers(ctx, tx, offers[start:end], now)
		if err != nil {
			return fmt.Errorf("upsert offers for event %s: %w", data.Event.ID, err)
		}
	}

	return tx.Commit()
}

func (r *SportEventRepository) upsertEvent(ctx context.Context, tx *sqlx.Tx, event *entity.SportEvent) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(event.TableName()).
		Columns(sportEventColumns...).
		Values(
			event.ID,
			event.SportKey,
			event.SportTitle,
			event.CommenceTime,
			event.HomeTeam,
			event.AwayTeam,
			event.CreatedAt,
			event.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id)
DO UPDATE SET
	sport_key = EXCLUDED.sport_key,
	sport_title = EXCLUDED.sport_title,
	commence_time = EXCLUDED.commence_time,
	home_team = EXCLUDED.home_team,
	away_team = EXCLUDED.away_team,
	updated_at = EXCLUDED.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *SportEventRepository) FindByID(ctx context.Context, id string) (*entity.SportEvent, error) {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(sportEventColumns...).
		From(entity.SportEvent{}.TableName()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var event entity.SportEvent
	err = r.db.GetContext(ctx, &event, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &event, nil
}

// FindAll lists events by commence time. A zero limit returns every event.
func (r *SportEventRepository) FindAll(ctx context.Context, page entity.Page) ([]entity.SportEvent, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(sportEventColumns...).
		From(entity.SportEvent{}.TableName()).
		OrderBy("commence_time asc", "id asc")

	if page.Limit > 0 {
		queryBuilder = queryBuilder.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		queryBuilder = queryBuilder.Offset(uint64(page.Offset))
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	events := make([]entity.SportEvent, 0)
	err = r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *SportEventRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.SportEvent, error) {
	if len(ids) == 0 {
		return []entity.SportEvent{}, nil
	}

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(sportEventColumns...).
		From(entity.SportEvent{}.TableName()).
		Where(sq.Eq{"id": ids}).
		OrderBy("commence_time asc", "id asc").
		ToSql()
	if err != nil {
		return nil, err
	}

	events := make([]entity.SportEvent, 0)
	err = r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// FindByTeamNames returns events where any of the names plays home or away.
func (r *SportEventRepository) FindByTeamNames(ctx context.Context, names []string) ([]entity.SportEvent, error) {
	if len(names) == 0 {
		return []entity.SportEvent{}, nil
	}

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(sportEventColumns...).
		From(entity.SportEvent{}.TableName()).
		Where(sq.Or{
			sq.Eq{"home_team": names},
			sq.Eq{"away_team": names},
		}).
		OrderBy("commence_time asc", "id asc").
		ToSql()
	if err != nil {
		return nil, err
	}

	events := make([]entity.SportEvent, 0)
	err = r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}
