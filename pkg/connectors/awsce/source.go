package awsce

import (
	"context"
	"fmt"
	"strconv"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Savings thresholds for mapping monthly dollars onto an impact level.
const (
	highSavingsThreshold   = 100.0
	mediumSavingsThreshold = 20.0
)

type CostExplorerAPI interface {
	GetRightsizingRecommendation(
		ctx context.Context,
		input *costexplorer.GetRightsizingRecommendationInput,
		optFns ...func(*costexplorer.Options),
	) (*costexplorer.GetRightsizingRecommendationOutput, error)
}

type EC2API interface {
	DescribeInstances(
		ctx context.Context,
		input *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)
}

type RDSAPI interface {
	DescribeDBInstances(
		ctx context.Context,
		input *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)
}

// Source turns Cost Explorer rightsizing recommendations and RDS instance
// configuration into drafts. EC2 describe calls enrich the rightsizing
// drafts with instance state when available.
type Source struct {
	costExplorer CostExplorerAPI
	ec2          EC2API
	rds          RDSAPI
}

func NewSource(costExplorer CostExplorerAPI, ec2Client EC2API, rdsClient RDSAPI) *Source {
	return &Source{costExplorer: costExplorer, ec2: ec2Client, rds: rdsClient}
}

// SourceFactory builds a source from a shared-config profile.
func SourceFactory(ctx context.Context, profile string) (*Source, error) {
	cfg, err := LoadConfig(ctx, profile)
	if err != nil {
		return nil, err
	}
	return NewSource(
		costexplorer.NewFromConfig(*cfg),
		ec2.NewFromConfig(*cfg),
		rds.NewFromConfig(*cfg),
	), nil
}

func (s *Source) Platform() string {
	return "AWS"
}

func (s *Source) Collect(ctx context.Context, _ int) ([]domain.RecommendationDraft, error) {
	drafts, err := s.collectRightsizing(ctx)
	if err != nil {
		return nil, err
	}

	rdsDrafts, err := s.collectRDS(ctx)
	if err != nil {
		// Rightsizing results are still useful without the RDS pass.
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rds describe failed, skipping")
		return drafts, nil
	}
	return append(drafts, rdsDrafts...), nil
}

func (s *Source) collectRightsizing(ctx context.Context) ([]domain.RecommendationDraft, error) {
	var drafts []domain.RecommendationDraft
	var nextToken *string

	for {
		result, err := s.costExplorer.GetRightsizingRecommendation(ctx, &costexplorer.GetRightsizingRecommendationInput{
			Service:       awssdk.String("AmazonEC2"),
			NextPageToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("get rightsizing recommendations: %w", err)
		}

		states := s.describeInstanceStates(ctx, result.RightsizingRecommendations)
		for _, rec := range result.RightsizingRecommendations {
			if draft, ok := rightsizingDraft(rec, states); ok {
				drafts = append(drafts, draft)
			}
		}

		if result.NextPageToken == nil || *result.NextPageToken == "" {
			break
		}
		nextToken = result.NextPageToken
	}
	return drafts, nil
}

// describeInstanceStates maps resource id to current instance state. Any
// failure yields an empty map; enrichment is best effort.
func (s *Source) describeInstanceStates(
	ctx context.Context,
	recommendations []cetypes.RightsizingRecommendation,
) map[string]string {
	states := make(map[string]string)

	ids := make([]string, 0, len(recommendations))
	for _, rec := range recommendations {
		if rec.CurrentInstance != nil && rec.CurrentInstance.ResourceId != nil {
			ids = append(ids, *rec.CurrentInstance.ResourceId)
		}
	}
	if len(ids) == 0 {
		return states
	}

	result, err := s.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ec2 describe failed, skipping enrichment")
		return states
	}

	for _, reservation := range result.Reservations {
		for _, instance := range reservation.Instances {
			if instance.InstanceId != nil && instance.State != nil {
				states[*instance.InstanceId] = string(instance.State.Name)
			}
		}
	}
	return states
}

func rightsizingDraft(
	rec cetypes.RightsizingRecommendation,
	states map[string]string,
) (domain.RecommendationDraft, bool) {
	if rec.CurrentInstance == nil {
		return domain.RecommendationDraft{}, false
	}

	resource := awssdk.ToString(rec.CurrentInstance.ResourceId)
	name := awssdk.ToString(rec.CurrentInstance.InstanceName)
	if name == "" {
		name = resource
	}

	instanceType := ""
	if details := rec.CurrentInstance.ResourceDetails; details != nil && details.EC2ResourceDetails != nil {
		instanceType = awssdk.ToString(details.EC2ResourceDetails.InstanceType)
	}

	var text string
	var savings *float64
	currency := "USD"

	switch rec.RightsizingType {
	case cetypes.RightsizingTypeTerminate:
		text = fmt.Sprintf("Terminate idle instance %s (%s)", name, instanceType)
		if detail := rec.TerminateRecommendationDetail; detail != nil {
			savings = parseMoney(detail.EstimatedMonthlySavings)
			if detail.CurrencyCode != nil {
				currency = *detail.CurrencyCode
			}
		}
	case cetypes.RightsizingTypeModify:
		target := defaultTarget(rec.ModifyRecommendationDetail)
		if target == nil {
			return domain.RecommendationDraft{}, false
		}
		targetType := ""
		if target.ResourceDetails != nil && target.ResourceDetails.EC2ResourceDetails != nil {
			targetType = awssdk.ToString(target.ResourceDetails.EC2ResourceDetails.InstanceType)
		}
		text = fmt.Sprintf("Resize instance %s from %s to %s", name, instanceType, targetType)
		savings = parseMoney(target.EstimatedMonthlySavings)
		if target.CurrencyCode != nil {
			currency = *target.CurrencyCode
		}
	default:
		return domain.RecommendationDraft{}, false
	}

	extras := map[string]string{
		"provider":      "aws",
		"instance_type": instanceType,
	}
	if state, ok := states[resource]; ok {
		extras["instance_state"] = state
	}

	return domain.RecommendationDraft{
		Category:         domain.CategoryCost,
		Impact:           impactForSavings(savings),
		Text:             text,
		Resource:         resource,
		EstimatedSavings: savings,
		Currency:         currency,
		Extras:           extras,
	}, true
}

func (s *Source) collectRDS(ctx context.Context) ([]domain.RecommendationDraft, error) {
	result, err := s.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe db instances: %w", err)
	}

	var drafts []domain.RecommendationDraft
	for _, instance := range result.DBInstances {
		if instance.MultiAZ != nil && *instance.MultiAZ {
			continue
		}
		id := awssdk.ToString(instance.DBInstanceIdentifier)
		drafts = append(drafts, domain.RecommendationDraft{
			Category: domain.CategoryReliability,
			Impact:   domain.ImpactMedium,
			Text:     fmt.Sprintf("Enable Multi-AZ for database %s", id),
			Resource: id,
			Currency: "USD",
			Extras: map[string]string{
				"provider":       "aws",
				"instance_class": awssdk.ToString(instance.DBInstanceClass),
				"status":         awssdk.ToString(instance.DBInstanceStatus),
			},
		})
	}
	return drafts, nil
}

func defaultTarget(detail *cetypes.ModifyRecommendationDetail) *cetypes.TargetInstance {
	if detail == nil || len(detail.TargetInstances) == 0 {
		return nil
	}
	for i := range detail.TargetInstances {
		if detail.TargetInstances[i].DefaultTargetInstance {
			return &detail.TargetInstances[i]
		}
	}
	return &detail.TargetInstances[0]
}

func parseMoney(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	value, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func impactForSavings(savings *float64) domain.Impact {
	if savings == nil {
		return domain.ImpactLow
	}
	switch {
	case *savings >= highSavingsThreshold:
		return domain.ImpactHigh
	case *savings >= mediumSavingsThreshold:
		return domain.ImpactMedium
	}
	return domain.ImpactLow
}
