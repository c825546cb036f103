package connectors

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Source pulls recommendations straight from a provider instead of a CSV
// export. All sources feed the same draft pipeline the upload path uses.
type Source interface {
	Platform() string
	Collect(ctx context.Context, days int) ([]domain.RecommendationDraft, error)
}

// CollectAll gathers drafts from every source, skipping sources that fail
// so one provider outage does not empty the whole pull.
func CollectAll(ctx context.Context, sources []Source, days int) ([]domain.RecommendationDraft, error) {
	logger := zerolog.Ctx(ctx)

	var drafts []domain.RecommendationDraft
	var failed int
	for _, source := range sources {
		collected, err := source.Collect(ctx, days)
		if err != nil {
			logger.Warn().Err(err).Str("platform", source.Platform()).Msg("source collection failed")
			failed++
			continue
		}
		logger.Info().Str("platform", source.Platform()).Int("drafts", len(collected)).Msg("source collected")
		drafts = append(drafts, collected...)
	}

	if failed == len(sources) && len(sources) > 0 {
		return nil, fmt.Errorf("all %d sources failed", failed)
	}
	return drafts, nil
}
