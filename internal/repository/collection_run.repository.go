package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/entity"
)

type CollectionRunRepository struct {
	db *sqlx.DB
}

func NewCollectionRunRepository(db *sqlx.DB) *CollectionRunRepository {
	return &CollectionRunRepository{db: db}
}

func (r *CollectionRunRepository) Create(ctx context.Context, run *entity.CollectionRun) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(run.TableName()).
		Columns(
			"id",
			"provider",
			"league",
			"events",
			"offers",
			"failed_events",
			"status",
			"error_message",
			"started_at",
			"finished_at",
		).
		Values(
			run.ID,
			run.Provider,
			run.League,
			run.Events,
			run.Offers,
			run.FailedEvents,
			run.Status,
			run.ErrorMessage,
			run.StartedAt,
			run.FinishedAt,
		)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *CollectionRunRepository) FindLatest(ctx context.Context, limit int) ([]entity.CollectionRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.CollectionRun{}.TableName()).
		OrderBy("started_at desc").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	runs := make([]entity.CollectionRun, 0)
	err = r.db.SelectContext(ctx, &runs, query, args...)
	if err != nil {
		return nil, err
	}

	return runs, nil
}
