package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const ReportsSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		id VARCHAR NOT NULL PRIMARY KEY,
		client_id VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		source_file VARCHAR,
		html_path VARCHAR,
		pdf_path VARCHAR,
		failure_reason VARCHAR NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const RecommendationsSchema = `
	CREATE TABLE IF NOT EXISTS recommendations (
		id VARCHAR NOT NULL,
		report_id VARCHAR NOT NULL,
		category VARCHAR,
		impact VARCHAR,
		text VARCHAR,
		resource VARCHAR,
		estimated_savings DOUBLE NULL,
		currency VARCHAR,
		extras JSON,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (report_id, id)
	);
`

var bootQueries = []string{
	ReportsSchema,
	RecommendationsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}

type txKey struct{}

// WithTransaction lets a caller scope several store calls to one tx.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func GetTransaction(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
