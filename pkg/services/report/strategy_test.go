package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

func savings(v float64) *float64 { return &v }

func testReport(reportType domain.ReportType) domain.Report {
	return domain.Report{
		ID:        "r1",
		ClientID:  "acme",
		Type:      reportType,
		Status:    domain.ReportStatusProcessing,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func testRecommendations() []domain.Recommendation {
	return []domain.Recommendation{
		{ID: "1", Category: domain.CategoryCost, Impact: domain.ImpactHigh, Text: "Resize VM", Resource: "vm-1", EstimatedSavings: savings(200), Currency: "USD"},
		{ID: "2", Category: domain.CategorySecurity, Impact: domain.ImpactMedium, Text: "Enable MFA", Resource: "account"},
		{ID: "3", Category: domain.CategoryCost, Impact: domain.ImpactLow, Text: "Delete orphaned disk", Resource: "disk-7", EstimatedSavings: savings(30), Currency: "USD"},
		{ID: "4", Category: domain.CategoryReliability, Impact: domain.ImpactHigh, Text: "Add a second AZ", Resource: "vm-1"},
		{ID: "5", Category: domain.CategoryOperational, Impact: domain.ImpactLow, Text: "Tag resources", Resource: "vm-2"},
	}
}

func sectionTitled(t *testing.T, doc domain.Document, title string) domain.DocumentSection {
	t.Helper()
	for _, s := range doc.Sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("document has no section %q", title)
	return domain.DocumentSection{}
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext(testReport(domain.ReportTypeDetailed), testRecommendations())

	assert.Equal(t, 2, ctx.CategoryCounts[domain.CategoryCost])
	assert.InDelta(t, 230, ctx.CategorySavings[domain.CategoryCost], 0.001)
	assert.InDelta(t, 230, ctx.TotalSavings, 0.001)
	assert.Equal(t, 2, ctx.ImpactCounts[domain.ImpactHigh])
	assert.Equal(t, "USD", ctx.Currency)
}

func TestDetailedStrategy(t *testing.T) {
	s, err := NewRegistry(DefaultConfig()).Create(domain.ReportTypeDetailed)
	require.NoError(t, err)

	doc := s.Build(BuildContext(testReport(domain.ReportTypeDetailed), testRecommendations()))

	// One group per distinct resource plus the overview.
	assert.Len(t, doc.Sections, 5)
	assert.Equal(t, "Overview", doc.Sections[0].Title)
	// vm-1 carries the largest savings so its group leads.
	assert.Equal(t, "vm-1", doc.Sections[1].Title)
	assert.Len(t, doc.Sections[1].Items, 2)
	// Within the group: impact desc, then savings desc.
	assert.Equal(t, "high", doc.Sections[1].Items[0].Name)
}

func TestExecutiveStrategy(t *testing.T) {
	t.Run("caps the list at top N", func(t *testing.T) {
		s := NewExecutiveStrategy(Config{ExecutiveTopN: 2})
		doc := s.Build(BuildContext(testReport(domain.ReportTypeExecutive), testRecommendations()))

		top := sectionTitled(t, doc, "Top 2 Opportunities")
		require.Len(t, top.Items, 2)
		// Highest impact + savings first.
		assert.Equal(t, "vm-1", top.Items[0].Name)
	})

	t.Run("rollup totals present", func(t *testing.T) {
		s := NewExecutiveStrategy(DefaultConfig())
		doc := s.Build(BuildContext(testReport(domain.ReportTypeExecutive), testRecommendations()))

		rollup := sectionTitled(t, doc, "Roll-up")
		assert.Equal(t, 5, rollup.Summary["recommendations"])
	})
}

func TestCostStrategy(t *testing.T) {
	s := NewCostStrategy(DefaultConfig())

	t.Run("includes only cost items", func(t *testing.T) {
		doc := s.Build(BuildContext(testReport(domain.ReportTypeCost), testRecommendations()))

		ranking := sectionTitled(t, doc, "Savings Ranking")
		require.Len(t, ranking.Items, 2)
		assert.Equal(t, "vm-1", ranking.Items[0].Name)
		assert.Equal(t, "disk-7", ranking.Items[1].Name)
		assert.InDelta(t, 230, doc.TotalSavings, 0.001)
	})

	t.Run("absent savings contribute zero", func(t *testing.T) {
		recs := []domain.Recommendation{
			{Category: domain.CategoryCost, Impact: domain.ImpactHigh, Text: "Resize", Resource: "vm-1"},
		}
		doc := s.Build(BuildContext(testReport(domain.ReportTypeCost), recs))
		assert.InDelta(t, 0, doc.TotalSavings, 0.001)
		assert.Len(t, sectionTitled(t, doc, "Savings Ranking").Items, 1)
	})

	t.Run("no cost items renders an empty section", func(t *testing.T) {
		recs := []domain.Recommendation{
			{Category: domain.CategorySecurity, Impact: domain.ImpactHigh, Text: "Enable MFA"},
		}
		doc := s.Build(BuildContext(testReport(domain.ReportTypeCost), recs))

		require.Len(t, doc.Sections, 1)
		assert.True(t, doc.Sections[0].Empty)
	})
}

func TestSecurityStrategy(t *testing.T) {
	s := NewSecurityStrategy(DefaultConfig())

	t.Run("lists exactly the security items scored by impact", func(t *testing.T) {
		doc := s.Build(BuildContext(testReport(domain.ReportTypeSecurity), testRecommendations()))

		findings := sectionTitled(t, doc, "Security Findings")
		require.Len(t, findings.Items, 1)
		assert.Equal(t, 60, findings.Items[0].Value) // medium impact
		assert.Equal(t, "risk", findings.Items[0].Unit)
	})

	t.Run("orders by risk descending", func(t *testing.T) {
		recs := []domain.Recommendation{
			{Category: domain.CategorySecurity, Impact: domain.ImpactLow, Text: "Rotate keys", Resource: "kms"},
			{Category: domain.CategorySecurity, Impact: domain.ImpactHigh, Text: "Close port 22", Resource: "sg-1"},
		}
		doc := s.Build(BuildContext(testReport(domain.ReportTypeSecurity), recs))

		findings := sectionTitled(t, doc, "Security Findings")
		assert.Equal(t, "sg-1", findings.Items[0].Name)
		assert.Equal(t, 1, findings.Summary["high risk"])
	})

	t.Run("no findings is a valid outcome", func(t *testing.T) {
		doc := s.Build(BuildContext(testReport(domain.ReportTypeSecurity), nil))
		require.Len(t, doc.Sections, 1)
		assert.True(t, doc.Sections[0].Empty)
		assert.Contains(t, doc.Sections[0].Summary["note"], "No security issues")
	})
}

func TestOperationsStrategy(t *testing.T) {
	s := NewOperationsStrategy(DefaultConfig())
	doc := s.Build(BuildContext(testReport(domain.ReportTypeOperations), testRecommendations()))

	risks := sectionTitled(t, doc, "Availability Risks")
	require.Len(t, risks.Items, 2)
	assert.Equal(t, 1, risks.Summary["reliability items"])
	assert.Equal(t, 1, risks.Summary["operational items"])
	// Reliability high-impact item precedes the operational low one.
	assert.Contains(t, risks.Items[0].Description, "reliability")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	t.Run("all five types registered", func(t *testing.T) {
		assert.Len(t, r.ListTypes(), 5)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.Create("quarterly")
		assert.Error(t, err)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		err := r.Register(domain.ReportTypeCost, NewCostStrategy)
		assert.Error(t, err)
	})
}
