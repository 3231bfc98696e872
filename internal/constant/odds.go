package constant

import (
	"fmt"
	"strings"
)

const (
	OddsDatabaseName = "odds_tracker"
	CacheRedisName   = "cache"
	HTTPPortName     = "odds_gateway_http"

	OddsStreamName               = "odds"
	OddsStreamSubjectAll         = "odds.>"
	OddsStreamSubjectCollected   = "odds.collected"
	OddsStreamSubjectLineMove    = "odds.line_move"
	OddsCollectedQueueGroup      = "odds_collected_line_movement_group"
	OddsLineMoveBroadcastSubject = "odds.line_move.*"

	LineMovementCacheKeyPrefix = "odds-tracker:line-movement"
	TeamCacheKey               = "odds-tracker:teams"
)

func GetOddsCollectedSubject(provider string) string {
	return fmt.Sprintf("%s.%s", OddsStreamSubjectCollected, provider)
}

func GetOddsCollectedSubjectAll() string {
	return fmt.Sprintf("%s.*", OddsStreamSubjectCollected)
}

func GetLineMoveSubject(eventID string) string {
	// subject tokens cannot contain dots
	return fmt.Sprintf("%s.%s", OddsStreamSubjectLineMove, strings.ReplaceAll(eventID, ".", "_"))
}

func GetLineMovementCacheKey(eventID string) string {
	return fmt.Sprintf("%s:%s", LineMovementCacheKeyPrefix, eventID)
}
