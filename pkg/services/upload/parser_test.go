package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

func validate(t *testing.T, csv string) domain.ValidationResult {
	t.Helper()
	result := NewValidator(DefaultValidatorConfig()).Validate([]byte(csv), "export.csv")
	require.True(t, result.OK, "fixture must pass validation")
	return result
}

func TestParser_Parse(t *testing.T) {
	p := NewParser()

	t.Run("one draft per data row", func(t *testing.T) {
		drafts, err := p.Parse(validate(t, sampleCSV))
		require.NoError(t, err)
		require.Len(t, drafts, 3)

		assert.Equal(t, domain.CategoryCost, drafts[0].Category)
		assert.Equal(t, domain.ImpactHigh, drafts[0].Impact)
		assert.Equal(t, "Resize VM", drafts[0].Text)
		assert.Equal(t, domain.CategorySecurity, drafts[1].Category)
		assert.Equal(t, domain.CategoryCost, drafts[2].Category)
	})

	t.Run("unknown columns survive into extras", func(t *testing.T) {
		csv := "Category,Business Impact,Recommendation,Vendor Score\n" +
			"Cost,High,Resize VM,87\n"
		drafts, err := p.Parse(validate(t, csv))
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "87", drafts[0].Extras["Vendor Score"])
	})

	t.Run("empty savings parse to absent not zero", func(t *testing.T) {
		csv := "Category,Business Impact,Recommendation,Estimated Savings\n" +
			"Cost,High,Resize VM,\n" +
			"Cost,Low,Delete disk,\"$1,250.40\"\n"
		drafts, err := p.Parse(validate(t, csv))
		require.NoError(t, err)
		require.Len(t, drafts, 2)
		assert.Nil(t, drafts[0].EstimatedSavings)
		require.NotNil(t, drafts[1].EstimatedSavings)
		assert.InDelta(t, 1250.40, *drafts[1].EstimatedSavings, 0.001)
	})

	t.Run("empty required cells pass through as empty", func(t *testing.T) {
		csv := "Category,Business Impact,Recommendation\n" +
			"Cost,High,Resize VM\n" +
			",,Enable MFA\n"
		drafts, err := p.Parse(validate(t, csv))
		require.NoError(t, err)
		require.Len(t, drafts, 2)
		assert.Empty(t, string(drafts[1].Category))
		assert.Empty(t, string(drafts[1].Impact))
	})

	t.Run("category spellings normalize", func(t *testing.T) {
		csv := "Category,Business Impact,Recommendation\n" +
			"Operational Excellence,Low,Tag resources\n" +
			"RELIABILITY,Medium,Add replicas\n"
		drafts, err := p.Parse(validate(t, csv))
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryOperational, drafts[0].Category)
		assert.Equal(t, domain.CategoryReliability, drafts[1].Category)
	})

	t.Run("refuses a rejected validation result", func(t *testing.T) {
		rejected := NewValidator(DefaultValidatorConfig()).Validate([]byte("x"), "export.txt")
		_, err := p.Parse(rejected)
		assert.Error(t, err)
	})
}
