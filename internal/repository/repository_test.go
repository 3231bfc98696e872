package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func sampleEventData() *entity.SportEventData {
	commence := time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)
	snapshot := commence.Add(-2 * time.Hour)

	return &entity.SportEventData{
		Event: entity.SportEvent{
			ID:           "1021870431",
			SportKey:     "american_football_nfl",
			SportTitle:   "NFL",
			CommenceTime: commence,
			HomeTeam:     "Kansas City Chiefs",
			AwayTeam:     "Baltimore Ravens",
		},
		Offers: []entity.EventOffer{
			{EventID: "1021870431", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "Kansas City Chiefs", Timestamp: snapshot, Price: decimal.RequireFromString("1.80")},
			{EventID: "1021870431", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "Baltimore Ravens", Timestamp: snapshot, Price: decimal.RequireFromString("2.05")},
		},
	}
}

func TestSportEventRepository_UpsertEventData(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sport_events (id,sport_key,sport_title,commence_time,home_team,away_team,created_at,updated_at)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_offers (event_id,bookmaker,offer_type,choice,last_update,price,point,updated_at)") + ".*ON CONFLICT \\(event_id, bookmaker, offer_type, choice, last_update\\)").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	data := sampleEventData()
	err := repo.UpsertEventData(context.Background(), data)
	require.NoError(t, err)
	assert.False(t, data.Event.CreatedAt.IsZero())
	assert.False(t, data.Event.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSportEventRepository_UpsertEventDataRollback(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sport_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO event_offers").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.UpsertEventData(context.Background(), sampleEventData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert offers for event 1021870431")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSportEventRepository_UpsertEventDataWithoutOffers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sport_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	data := sampleEventData()
	data.Offers = nil
	require.NoError(t, repo.UpsertEventData(context.Background(), data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSportEventRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)
	now := time.Now().UTC()

	query := regexp.QuoteMeta("SELECT id, sport_key, sport_title, commence_time, home_team, away_team, created_at, updated_at FROM sport_events WHERE id = $1")
	mock.ExpectQuery(query).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows(sportEventColumns).
			AddRow("evt-1", "american_football_nfl", "NFL", now, "Kansas City Chiefs", "Baltimore Ravens", now, now))
	mock.ExpectQuery(query).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sportEventColumns))

	event, err := repo.FindByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Kansas City Chiefs", event.HomeTeam)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSportEventRepository_FindAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sport_events ORDER BY commence_time asc, id asc LIMIT 10 OFFSET 20")).
		WillReturnRows(sqlmock.NewRows(sportEventColumns).
			AddRow("evt-1", "american_football_nfl", "NFL", now, "A", "B", now, now).
			AddRow("evt-2", "american_football_nfl", "NFL", now, "C", "D", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sport_events ORDER BY commence_time asc, id asc")).
		WillReturnRows(sqlmock.NewRows(sportEventColumns))

	events, err := repo.FindAll(context.Background(), entity.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = repo.FindAll(context.Background(), entity.Page{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSportEventRepository_FindByIDsAndTeamNames(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSportEventRepository(db)
	now := time.Now().UTC()

	events, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN ($1,$2)")).
		WithArgs("evt-1", "evt-2").
		WillReturnRows(sqlmock.NewRows(sportEventColumns).
			AddRow("evt-1", "american_football_nfl", "NFL", now, "A", "B", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (home_team IN ($1,$2) OR away_team IN ($3,$4))")).
		WithArgs("Kansas City Chiefs", "KC Chiefs", "Kansas City Chiefs", "KC Chiefs").
		WillReturnRows(sqlmock.NewRows(sportEventColumns).
			AddRow("evt-1", "american_football_nfl", "NFL", now, "Kansas City Chiefs", "B", now, now))

	events, err = repo.FindByIDs(context.Background(), []string{"evt-1", "evt-2"})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = repo.FindByTeamNames(context.Background(), []string{"Kansas City Chiefs", "KC Chiefs"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Kansas City Chiefs", events[0].HomeTeam)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventOfferRepository_FindByEventID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventOfferRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM event_offers WHERE (event_id = $1 AND offer_type = $2 AND bookmaker = $3) ORDER BY last_update desc")).
		WithArgs("evt-1", "spreads", "kambi").
		WillReturnRows(sqlmock.NewRows(eventOfferColumns).
			AddRow("evt-1", "kambi", "spreads", "Kansas City Chiefs", now, "1.91", "-3.5", now).
			AddRow("evt-1", "kambi", "spreads", "Kansas City Chiefs", now.Add(-time.Hour), "1.87", nil, now))

	offers, err := repo.FindByEventID(context.Background(), "evt-1", OfferFilter{OfferType: entity.OfferTypeSpreads, Bookmaker: "kambi"})
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.True(t, decimal.RequireFromString("1.91").Equal(offers[0].Price))
	assert.True(t, offers[0].Point.Valid)
	assert.True(t, decimal.RequireFromString("-3.5").Equal(offers[0].Point.Decimal))
	assert.False(t, offers[1].Point.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupeOffers(t *testing.T) {
	ts := time.Date(2025, 9, 7, 15, 0, 0, 0, time.UTC)
	offers := []entity.EventOffer{
		{EventID: "evt-1", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "A", Timestamp: ts, Price: decimal.RequireFromString("1.80")},
		{EventID: "evt-1", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "B", Timestamp: ts, Price: decimal.RequireFromString("2.00")},
		{EventID: "evt-1", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "A", Timestamp: ts, Price: decimal.RequireFromString("1.85")},
		{EventID: "evt-1", Bookmaker: "kambi", OfferType: entity.OfferTypeH2H, Choice: "A", Timestamp: ts.Add(time.Minute), Price: decimal.RequireFromString("1.90")},
	}

	deduped := dedupeOffers(offers)
	require.Len(t, deduped, 3)
	assert.Equal(t, "A", deduped[0].Choice)
	assert.True(t, decimal.RequireFromString("1.85").Equal(deduped[0].Price))
	assert.Equal(t, "B", deduped[1].Choice)
	assert.True(t, decimal.RequireFromString("1.90").Equal(deduped[2].Price))
}

func TestTeamRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTeamRepository(db)
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertMany(context.Background(), nil))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teams (team_abbr,team_name") + ".*" + regexp.QuoteMeta("ON CONFLICT (team_abbr)")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpsertMany(context.Background(), []entity.Team{
		{TeamAbbr: "KC", TeamName: "Kansas City Chiefs"},
		{TeamAbbr: "BAL", TeamName: "Baltimore Ravens"},
	})
	require.NoError(t, err)

	row := []driver.Value{"KC", "Kansas City Chiefs", "2310", "Chiefs", "AFC", "AFC West", "#E31837",
		"#FFB612", nil, nil, nil, nil, nil, nil, nil, nil, "KC Chiefs", int64(1000000119), now, now}
	mock.ExpectQuery(regexp.QuoteMeta("FROM teams ORDER BY team_abbr asc")).
		WillReturnRows(sqlmock.NewRows(teamColumns).AddRow(row...))

	teams, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "KC", teams[0].TeamAbbr)
	assert.Equal(t, "#FFB612", teams[0].TeamColor2.String)
	assert.False(t, teams[0].TeamColor3.Valid)
	assert.Equal(t, int64(1000000119), teams[0].ParticipantID.Int64)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRunRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCollectionRunRepository(db)
	started := time.Now().UTC().Add(-time.Second)
	finished := time.Now().UTC()

	run := &entity.CollectionRun{
		ID:           "run-1",
		Provider:     "kambi",
		League:       "nfl",
		Events:       3,
		Offers:       24,
		Status:       entity.CollectionStatusSuccess,
		StartedAt:    started,
		FinishedAt:   sql.NullTime{Time: finished, Valid: true},
		ErrorMessage: sql.NullString{},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO collection_runs (id,provider,league,events,offers,failed_events,status,error_message,started_at,finished_at)")).
		WithArgs("run-1", "kambi", "nfl", 3, 24, 0, "success", nil, started, finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), run))

	columns := []string{"id", "provider", "league", "events", "offers", "failed_events", "status", "error_message", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM collection_runs ORDER BY started_at desc LIMIT 20")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-1", "kambi", "nfl", 3, 24, 0, "success", nil, started, finished).
			AddRow("run-0", "theoddsapi", "nfl", 0, 0, 0, "failed", "theoddsapi responded with status 401", started, finished))

	runs, err := repo.FindLatest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, entity.CollectionStatusFailed, runs[1].Status)
	assert.True(t, runs[1].ErrorMessage.Valid)
	assert.True(t, runs[0].FinishedAt.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}
