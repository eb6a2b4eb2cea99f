package ai

import (
	"context"

	"github.com/songzhibin97/prospector/internal/models"
)

// OutreachWriter drafts a first-contact message for a scored prospect
type OutreachWriter interface {
	// DraftOutreach returns a short plain-text message tailored to the wallet
	DraftOutreach(ctx context.Context, metrics *models.WalletMetrics, score *models.MortgageQualificationScore) (string, error)
}
