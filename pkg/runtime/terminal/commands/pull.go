package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudlens/advisor/pkg/connectors"
	"github.com/cloudlens/advisor/pkg/connectors/awsce"
	"github.com/cloudlens/advisor/pkg/connectors/azurecost"
	"github.com/cloudlens/advisor/pkg/connectors/databrickssql"
	"github.com/cloudlens/advisor/pkg/connectors/snowflake"
	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/services/ingest"

	"github.com/spf13/cobra"
)

type PullCmd struct {
	providers  []string
	profile    string
	httpPath   string
	clientID   string
	reportType string
	days       int
	pipeline   *ingest.Pipeline
}

func NewPullCmd(pipeline *ingest.Pipeline) *cobra.Command {
	pc := &PullCmd{pipeline: pipeline}
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull recommendations directly from provider accounts",
		RunE:  pc.run,
	}

	cmd.Flags().StringSliceVar(&pc.providers, "provider", nil, "Providers to pull from (aws, azure, databricks, snowflake)")
	cmd.Flags().StringVar(&pc.profile, "profile", "", "Provider credentials profile")
	cmd.Flags().StringVar(&pc.httpPath, "http-path", "", "Databricks SQL warehouse HTTP path")
	cmd.Flags().StringVar(&pc.clientID, "client", "", "Client the recommendations belong to")
	cmd.Flags().StringVar(&pc.reportType, "type", "detailed", "Report type to prepare")
	cmd.Flags().IntVar(&pc.days, "days", 30, "Usage window in days")

	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}

func (pc *PullCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	var sources []connectors.Source
	var closers []func() error
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()

	for _, provider := range pc.providers {
		source, closer, err := pc.buildSource(ctx, provider)
		if err != nil {
			return fmt.Errorf("configure %s connector: %w", provider, err)
		}
		sources = append(sources, source)
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	drafts, err := connectors.CollectAll(ctx, sources, pc.days)
	if err != nil {
		return err
	}

	submission, err := pc.pipeline.SubmitDrafts(ctx, pc.clientID, domain.ReportType(pc.reportType),
		strings.Join(pc.providers, ","), drafts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report %s accepted with %d recommendations from %d providers\n",
		submission.Report.ID, submission.Recommendations, len(sources))
	return nil
}

func (pc *PullCmd) buildSource(ctx context.Context, provider string) (connectors.Source, func() error, error) {
	switch provider {
	case "aws":
		source, err := awsce.SourceFactory(ctx, pc.profile)
		return source, nil, err
	case "azure":
		source, err := azurecost.SourceFactory(pc.profile)
		return source, nil, err
	case "databricks":
		cfg, err := databrickssql.LoadConfig(pc.profile)
		if err != nil {
			return nil, nil, err
		}
		db, err := databrickssql.OpenDB(cfg, pc.httpPath)
		if err != nil {
			return nil, nil, err
		}
		return databrickssql.NewSource(db, databrickssql.DefaultDBURate), db.Close, nil
	case "snowflake":
		cfg, err := snowflake.LoadConfig(pc.profile)
		if err != nil {
			return nil, nil, err
		}
		db, err := snowflake.OpenDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return snowflake.NewSource(db, snowflake.DefaultCreditPrice), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", provider)
}
