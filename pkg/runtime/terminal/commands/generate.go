package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudlens/advisor/pkg/services/ingest"
	"github.com/cloudlens/advisor/pkg/services/jobs"

	"github.com/spf13/cobra"
)

type GenerateCmd struct {
	wait     bool
	timeout  time.Duration
	pipeline *ingest.Pipeline
}

func NewGenerateCmd(pipeline *ingest.Pipeline) *cobra.Command {
	gc := &GenerateCmd{pipeline: pipeline}
	cmd := &cobra.Command{
		Use:   "generate <report-id>",
		Short: "Schedule report generation",
		Args:  cobra.ExactArgs(1),
		RunE:  gc.run,
	}

	cmd.Flags().BoolVar(&gc.wait, "wait", false, "Block until generation finishes")
	cmd.Flags().DurationVar(&gc.timeout, "timeout", 5*time.Minute, "How long to wait with --wait")

	return cmd
}

func (gc *GenerateCmd) run(cmd *cobra.Command, args []string) error {
	reportID := args[0]

	handle, err := gc.pipeline.RequestGeneration(cmd.Context(), reportID)
	if errors.Is(err, jobs.ErrAlreadyRunning) {
		fmt.Fprintf(cmd.OutOrStdout(), "Report %s is already being generated\n", reportID)
		return nil
	}
	if err != nil {
		return err
	}

	if !gc.wait {
		fmt.Fprintf(cmd.OutOrStdout(), "Generation queued for report %s\n", reportID)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), gc.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for report %s", reportID)
	case <-handle.Done():
	}
	if err := handle.Err(); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	report, err := gc.pipeline.GetReportStatus(cmd.Context(), reportID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report %s completed\n  HTML: %s\n  PDF:  %s\n",
		report.ID, report.HTMLPath, report.PDFPath)
	return nil
}
