package intent

import (
	"context"

	"salonvox/internal/models"
)

// NoopClassifier is the stand-in used when no classification backend is
// configured: everything keyword matching missed stays unrecognized.
type NoopClassifier struct{}

func (NoopClassifier) ClassifyService(ctx context.Context, freeText string) (models.ServiceKind, error) {
	return models.ServiceNone, nil
}
