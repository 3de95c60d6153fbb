package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const classifyPrompt = `Tu classifies la demande d'un client de salon de coiffure.
Réponds par exactement un de ces mots, rien d'autre :
homme, femme, nonbinaire, aucun.
Demande du client : %q`

// GeminiClassifier resolves free speech into a service when keyword matching
// gave nothing. Every call is bounded by a timeout; a timeout is an answer
// ("none"), not a failure, so slow classification never stalls a call.
type GeminiClassifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewGeminiClassifier(ctx context.Context, cfg config.IntentConfig, logger *zerolog.Logger) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("intent api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiClassifier{
		client:  client,
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}, nil
}

func (g *GeminiClassifier) ClassifyService(ctx context.Context, freeText string) (models.ServiceKind, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	res, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(classifyPrompt, freeText)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Warn().Msg("intent classification timed out")
			return models.ServiceNone, nil
		}
		return models.ServiceNone, fmt.Errorf("intent classification: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return models.ServiceNone, nil
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return models.ServiceNone, nil
	}

	return parseKind(string(text)), nil
}

func (g *GeminiClassifier) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func parseKind(answer string) models.ServiceKind {
	switch {
	case strings.Contains(strings.ToLower(answer), "nonbinaire"),
		strings.Contains(strings.ToLower(answer), "non binaire"):
		return models.ServiceNonbinaryCut
	case strings.Contains(strings.ToLower(answer), "femme"):
		return models.ServiceWomanCut
	case strings.Contains(strings.ToLower(answer), "homme"):
		return models.ServiceManCut
	default:
		return models.ServiceNone
	}
}
