package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Engine converts styled markup into a paginated binary document. The
// conversion itself is a black box; failures are retryable from the
// orchestrator's point of view.
type Engine interface {
	GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error)
}

// ExecEngine shells out to a wkhtmltopdf-compatible binary reading HTML
// on stdin and writing the PDF to stdout.
type ExecEngine struct {
	binary string
	args   []string
}

func NewExecEngine(binary string) *ExecEngine {
	if binary == "" {
		binary = "wkhtmltopdf"
	}
	return &ExecEngine{
		binary: binary,
		args:   []string{"--quiet", "--page-size", "A4", "-", "-"},
	}
}

func (e *ExecEngine) GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	cmd.Stdin = bytes.NewBufferString(htmlContent)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdf engine %s failed: %w (%s)", e.binary, err, stderr.String())
	}
	return out.Bytes(), nil
}
