package snowflake

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

func TestSource_Collect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM snowflake.account_usage.warehouse_metering_history")).
		WithArgs(-30).
		WillReturnRows(sqlmock.NewRows([]string{"warehouse_name", "credits", "compute_credits"}).
			AddRow("ETL_WH", 100.0, 40.0).   // 60% overhead
			AddRow("BI_WH", 50.0, 35.0).     // 30% overhead
			AddRow("ADHOC_WH", 40.0, 38.0).  // 5% overhead
			AddRow("TINY_WH", 2.0, 0.5))     // below review floor

	source := NewSource(db, 3.0)
	drafts, err := source.Collect(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "ETL_WH", drafts[0].Resource)
	assert.Equal(t, domain.ImpactHigh, drafts[0].Impact)
	require.NotNil(t, drafts[0].EstimatedSavings)
	assert.InDelta(t, 180, *drafts[0].EstimatedSavings, 0.001) // 60 credits * $3

	assert.Equal(t, "BI_WH", drafts[1].Resource)
	assert.Equal(t, domain.ImpactMedium, drafts[1].Impact)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_CollectQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("warehouse_metering_history")).
		WillReturnError(errors.New("account locked"))

	source := NewSource(db, 0)
	_, err = source.Collect(context.Background(), 30)
	assert.ErrorContains(t, err, "query warehouse metering")
}
