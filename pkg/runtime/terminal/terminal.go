package terminal

import (
	"context"
	"io"
	"os"

	"github.com/cloudlens/advisor/pkg/runtime/terminal/commands"
	"github.com/cloudlens/advisor/pkg/runtime/terminal/export"

	"github.com/cloudlens/advisor/pkg/services/analytics"
	"github.com/cloudlens/advisor/pkg/services/ingest"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	pipeline  *ingest.Pipeline
	analytics analytics.Aggregator
	reporter  *export.Reporter
	rootCmd   *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Pipeline  *ingest.Pipeline
	Analytics analytics.Aggregator
	Output    io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		pipeline:  opts.Pipeline,
		analytics: opts.Analytics,
		reporter:  export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// ExecuteContext runs the CLI with ctx, so commands inherit its logger
// and cancellation.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisor",
		Short: "Cloud optimization advisor",
	}

	cmd.AddCommand(commands.NewSubmitCmd(cli.pipeline))
	cmd.AddCommand(commands.NewGenerateCmd(cli.pipeline))
	cmd.AddCommand(commands.NewStatusCmd(cli.pipeline))
	cmd.AddCommand(commands.NewDashboardCmd(cli.analytics, cli.reporter))
	cmd.AddCommand(commands.NewPullCmd(cli.pipeline))

	return cmd
}
