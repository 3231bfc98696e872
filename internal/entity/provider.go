package entity

import "context"

type ProviderKey string

const (
	ProviderKambi      ProviderKey = "kambi"
	ProviderTheOddsAPI ProviderKey = "theoddsapi"
)

func (p ProviderKey) IsValid() bool {
	switch p {
	case ProviderKambi, ProviderTheOddsAPI:
		return true
	default:
		return false
	}
}

// Provider fetches one league worth of events from a vendor and returns them
// normalized into SportEventData.
type Provider interface {
	Key() ProviderKey
	Leagues() []string
	FetchEvents(ctx context.Context, league string) ([]SportEventData, error)
}
