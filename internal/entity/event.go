package entity

import (
	"context"
	"time"
)

type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

type Subscriber interface {
	JetstreamEventSubscribe(ctx context.Context) error
}

// OddsCollectedEvent is published after a collection run stored its offers.
type OddsCollectedEvent struct {
	RetryCount int               `json:"retry"`
	Data       OddsCollectedData `json:"data"`
}

type OddsCollectedData struct {
	RunID       string    `json:"run_id"`
	Provider    string    `json:"provider"`
	League      string    `json:"league"`
	EventIDs    []string  `json:"event_ids"`
	CollectedAt time.Time `json:"collected_at"`
}
