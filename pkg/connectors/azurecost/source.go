package azurecost

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Monthly cost thresholds for flagging a service as review-worthy.
const (
	highCostThreshold   = 1000.0
	mediumCostThreshold = 200.0
)

type QueryAPI interface {
	Usage(
		ctx context.Context,
		scope string,
		parameters armcostmanagement.QueryDefinition,
		options *armcostmanagement.QueryClientUsageOptions,
	) (armcostmanagement.QueryClientUsageResponse, error)
}

// Source queries cost management usage by service and flags the services
// whose spend in the window crosses a review threshold.
type Source struct {
	client QueryAPI
	scope  string
}

func NewSource(client QueryAPI, subscriptionID string) *Source {
	return &Source{
		client: client,
		scope:  fmt.Sprintf("/subscriptions/%s", subscriptionID),
	}
}

// SourceFactory builds a source from an Azure CLI profile.
func SourceFactory(profile string) (*Source, error) {
	cfg, err := LoadConfig(profile)
	if err != nil {
		return nil, err
	}
	factory, err := armcostmanagement.NewClientFactory(cfg.Credentials, nil)
	if err != nil {
		return nil, fmt.Errorf("create cost management client: %w", err)
	}
	return NewSource(factory.NewQueryClient(), cfg.SubscriptionID), nil
}

func (s *Source) Platform() string {
	return "Azure"
}

func (s *Source) Collect(ctx context.Context, days int) ([]domain.RecommendationDraft, error) {
	timeFrom := time.Now().AddDate(0, 0, -days)
	timeTo := time.Now()

	exportType := armcostmanagement.ExportTypeActualCost
	granularity := armcostmanagement.GranularityTypeDaily
	timeframe := armcostmanagement.TimeframeTypeCustom
	dimension := armcostmanagement.QueryColumnTypeDimension

	params := armcostmanagement.QueryDefinition{
		Type: &exportType,
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Grouping: []*armcostmanagement.QueryGrouping{
				{
					Name: to.Ptr("ServiceName"),
					Type: &dimension,
				},
			},
		},
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &timeFrom,
			To:   &timeTo,
		},
	}

	result, err := s.client.Usage(ctx, s.scope, params, nil)
	if err != nil {
		return nil, fmt.Errorf("query azure costs: %w", err)
	}

	// Rows come back as [cost, date, serviceName, currency] for this
	// grouping; sum per service across the window.
	type serviceSpend struct {
		cost     float64
		currency string
	}
	spend := make(map[string]serviceSpend)
	var order []string

	if result.Properties != nil {
		for _, row := range result.Properties.Rows {
			if len(row) < 4 {
				continue
			}
			cost, ok := row[0].(float64)
			if !ok {
				continue
			}
			service := fmt.Sprintf("%v", row[2])
			currency := fmt.Sprintf("%v", row[3])

			entry, seen := spend[service]
			if !seen {
				order = append(order, service)
				entry.currency = currency
			}
			entry.cost += cost
			spend[service] = entry
		}
	}

	var drafts []domain.RecommendationDraft
	for _, service := range order {
		entry := spend[service]
		if entry.cost < mediumCostThreshold {
			continue
		}

		impact := domain.ImpactMedium
		if entry.cost >= highCostThreshold {
			impact = domain.ImpactHigh
		}

		drafts = append(drafts, domain.RecommendationDraft{
			Category: domain.CategoryCost,
			Impact:   impact,
			Text:     fmt.Sprintf("Review %s spend: %.2f %s over the last %d days", service, entry.cost, entry.currency, days),
			Resource: service,
			Currency: entry.currency,
			Extras: map[string]string{
				"provider":    "azure",
				"window_days": fmt.Sprintf("%d", days),
				"total_cost":  fmt.Sprintf("%.2f", entry.cost),
			},
		})
	}
	return drafts, nil
}
