package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/entity"
)

var teamColumns = []string{
	"team_abbr",
	"team_name",
	"team_id",
	"team_nick",
	"team_conf",
	"team_division",
	"team_color",
	"team_color2",
	"team_color3",
	"team_color4",
	"team_logo_wikipedia",
	"team_logo_espn",
	"team_wordmark",
	"team_conference_logo",
	"team_league_logo",
	"team_logo_squared",
	"participant_name",
	"participant_id",
	"created_at",
	"updated_at",
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) UpsertMany(ctx context.Context, teams []entity.Team) error {
	if len(teams) == 0 {
		return nil
	}

	now := time.Now().UTC()
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(entity.Team{}.TableName()).
		Columns(teamColumns...)

	for _, team := range teams {
		queryBuilder = queryBuilder.Values(
			team.TeamAbbr,
			team.TeamName,
			team.TeamID,
			team.TeamNick,
			team.TeamConf,
			team.TeamDivision,
			team.TeamColor,
			team.TeamColor2,
			team.TeamColor3,
			team.TeamColor4,
			team.TeamLogoWikipedia,
			team.TeamLogoESPN,
			team.TeamWordmark,
			team.TeamConferenceLogo,
			team.TeamLeagueLogo,
			team.TeamLogoSquared,
			team.ParticipantName,
			team.ParticipantID,
			now,
			now,
		)
	}

	queryBuilder = queryBuilder.Suffix(`ON CONFLICT (team_abbr)
DO UPDATE SET
	team_name = EXCLUDED.team_name,
	team_id = EXCLUDED.team_id,
	team_nick = EXCLUDED.team_nick,
	team_conf = EXCLUDED.team_conf,
	team_division = EXCLUDED.team_division,
	team_color = EXCLUDED.team_color,
	team_color2 = EXCLUDED.team_color2,
	team_color3 = EXCLUDED.team_color3,
	team_color4 = EXCLUDED.team_color4,
	team_logo_wikipedia = EXCLUDED.team_logo_wikipedia,
	team_logo_espn = EXCLUDED.team_logo_espn,
	team_wordmark = EXCLUDED.team_wordmark,
	team_conference_logo = EXCLUDED.team_conference_logo,
	team_league_logo = EXCLUDED.team_league_logo,
	team_logo_squared = EXCLUDED.team_logo_squared,
	participant_name = COALESCE(teams.participant_name, EXCLUDED.participant_name),
	participant_id = COALESCE(teams.participant_id, EXCLUDED.participant_id),
	updated_at = EXCLUDED.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *TeamRepository) FindAll(ctx context.Context) ([]entity.Team, error) {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(teamColumns...).
		From(entity.Team{}.TableName()).
		OrderBy("team_abbr asc").
		ToSql()
	if err != nil {
		return nil, err
	}

	teams := make([]entity.Team, 0)
	err = r.db.SelectContext(ctx, &teams, query, args...)
	if err != nil {
		return nil, err
	}

	return teams, nil
}
