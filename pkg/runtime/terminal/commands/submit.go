package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/services/ingest"

	"github.com/spf13/cobra"
)

type SubmitCmd struct {
	clientID   string
	reportType string
	pipeline   *ingest.Pipeline
}

func NewSubmitCmd(pipeline *ingest.Pipeline) *cobra.Command {
	sc := &SubmitCmd{pipeline: pipeline}
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a recommendations export",
		Args:  cobra.ExactArgs(1),
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.clientID, "client", "", "Client the export belongs to")
	cmd.Flags().StringVar(&sc.reportType, "type", "", "Report type to prepare (e.g., detailed)")

	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func (sc *SubmitCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	submission, err := sc.pipeline.SubmitCSV(ctx, sc.clientID, domain.ReportType(sc.reportType), filepath.Base(path), data)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report %s accepted with %d recommendations (status: %s)\n",
		submission.Report.ID, submission.Recommendations, submission.Report.Status)
	return nil
}
