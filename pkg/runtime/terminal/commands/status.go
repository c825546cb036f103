package commands

import (
	"fmt"

	"github.com/cloudlens/advisor/pkg/services/ingest"

	"github.com/spf13/cobra"
)

func NewStatusCmd(pipeline *ingest.Pipeline) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <report-id>",
		Short: "Show the state of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := pipeline.GetReportStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report:  %s\n", report.ID)
			fmt.Fprintf(out, "Client:  %s\n", report.ClientID)
			fmt.Fprintf(out, "Type:    %s\n", report.Type)
			fmt.Fprintf(out, "Status:  %s\n", report.Status)
			fmt.Fprintf(out, "Updated: %s\n", report.UpdatedAt.Format("2006-01-02 15:04:05"))
			if report.HTMLPath != "" {
				fmt.Fprintf(out, "HTML:    %s\n", report.HTMLPath)
				fmt.Fprintf(out, "PDF:     %s\n", report.PDFPath)
			}
			if report.FailureReason != nil {
				fmt.Fprintf(out, "Failure: %s\n", *report.FailureReason)
			}
			return nil
		},
	}
	return cmd
}
