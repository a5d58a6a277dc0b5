package service

import (
	"context"

	"RiskPulse/internal/domain/models"
)

// FearGreedSource fetches the latest external fear and greed reading.
type FearGreedSource interface {
	Latest(ctx context.Context) (models.FearGreedReading, error)
}
