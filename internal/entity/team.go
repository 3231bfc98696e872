package entity

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

type Team struct {
	TeamAbbr           string      `db:"team_abbr" json:"team_abbr"`
	TeamName           string      `db:"team_name" json:"team_name"`
	TeamID             string      `db:"team_id" json:"team_id"`
	TeamNick           string      `db:"team_nick" json:"team_nick"`
	TeamConf           string      `db:"team_conf" json:"team_conf"`
	TeamDivision       string      `db:"team_division" json:"team_division"`
	TeamColor          string      `db:"team_color" json:"team_color"`
	TeamColor2         null.String `db:"team_color2" json:"team_color2"`
	TeamColor3         null.String `db:"team_color3" json:"team_color3"`
	TeamColor4         null.String `db:"team_color4" json:"team_color4"`
	TeamLogoWikipedia  null.String `db:"team_logo_wikipedia" json:"team_logo_wikipedia"`
	TeamLogoESPN       null.String `db:"team_logo_espn" json:"team_logo_espn"`
	TeamWordmark       null.String `db:"team_wordmark" json:"team_wordmark"`
	TeamConferenceLogo null.String `db:"team_conference_logo" json:"team_conference_logo"`
	TeamLeagueLogo     null.String `db:"team_league_logo" json:"team_league_logo"`
	TeamLogoSquared    null.String `db:"team_logo_squared" json:"team_logo_squared"`
	ParticipantName    null.String `db:"participant_name" json:"participant_name"`
	ParticipantID      null.Int    `db:"participant_id" json:"participant_id"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

func (t Team) TableName() string {
	return "teams"
}

// Names returns every name a provider may use for this team.
func (t Team) Names() []string {
	names := []string{t.TeamName}
	if t.ParticipantName.Valid && !strings.EqualFold(t.ParticipantName.String, t.TeamName) {
		names = append(names, t.ParticipantName.String)
	}

	return names
}

func (t Team) Plays(event SportEvent) bool {
	for _, name := range t.Names() {
		if strings.EqualFold(event.HomeTeam, name) || strings.EqualFold(event.AwayTeam, name) {
			return true
		}
	}

	return false
}
