package commands

import (
	"testing"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardCmd_Assemble(t *testing.T) {
	dc := &DashboardCmd{clientID: "acme", days: 30}

	generated := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	doc := dc.assemble(
		&domain.DashboardMetrics{
			TotalReports:         4,
			CompletedReports:     3,
			FailedReports:        1,
			TotalRecommendations: 12,
			TotalSavings:         640.25,
			GeneratedAt:          generated,
		},
		[]domain.CategorySlice{
			{Category: domain.CategoryCost, Count: 8, Savings: 600},
			{Category: domain.CategorySecurity, Count: 4, Savings: 40.25},
		},
		[]domain.ActivityEntry{
			{ReportID: "r1", ClientID: "acme", Type: domain.ReportTypeCost, Status: domain.ReportStatusCompleted, UpdatedAt: generated},
		},
	)

	assert.Equal(t, "Advisor Dashboard - acme", doc.Title)
	assert.Equal(t, 640.25, doc.TotalSavings)
	assert.Equal(t, 30, doc.Period.Duration)
	assert.Equal(t, generated, doc.Period.End)

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "Overview", doc.Sections[0].Title)
	assert.Equal(t, int64(4), doc.Sections[0].Summary["Total Reports"])

	categories := doc.Sections[1]
	require.Len(t, categories.Items, 2)
	assert.Equal(t, "cost", categories.Items[0].Name)
	assert.Equal(t, "8 recommendations", categories.Items[0].Description)

	activity := doc.Sections[2]
	require.Len(t, activity.Items, 1)
	assert.Equal(t, "r1", activity.Items[0].Name)
	assert.Equal(t, "completed", activity.Items[0].Value)
}

func TestDashboardCmd_AssembleEmptySections(t *testing.T) {
	dc := &DashboardCmd{days: 7}

	doc := dc.assemble(&domain.DashboardMetrics{GeneratedAt: time.Now()}, nil, nil)

	assert.Equal(t, "Advisor Dashboard", doc.Title)
	assert.True(t, doc.Sections[1].Empty)
	assert.True(t, doc.Sections[2].Empty)
}
