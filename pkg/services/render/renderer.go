package render

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Artifacts are the two rendered outputs of one generation run.
type Artifacts struct {
	HTMLPath string
	PDFPath  string
}

// Renderer turns a shaped document into its two persisted artifacts:
// markup assembly, then the black-box binary conversion.
type Renderer struct {
	engine Engine
	store  ArtifactStore
}

func NewRenderer(engine Engine, store ArtifactStore) *Renderer {
	return &Renderer{engine: engine, store: store}
}

// Render produces and persists both artifacts. Keys are derived from the
// report id and type only, so re-running generation for the same report
// overwrites in place instead of accumulating files.
func (r *Renderer) Render(ctx context.Context, doc domain.Document) (*Artifacts, error) {
	logger := zerolog.Ctx(ctx)

	html, err := AssembleHTML(doc)
	if err != nil {
		return nil, err
	}

	pdf, err := r.engine.GeneratePDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render pdf for report %s: %w", doc.ReportID, err)
	}

	htmlKey := fmt.Sprintf("reports/%s/%s.html", doc.ReportID, doc.Type)
	pdfKey := fmt.Sprintf("reports/%s/%s.pdf", doc.ReportID, doc.Type)

	htmlPath, err := r.store.Put(ctx, htmlKey, []byte(html))
	if err != nil {
		return nil, err
	}
	pdfPath, err := r.store.Put(ctx, pdfKey, pdf)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("report_id", doc.ReportID).
		Str("html", htmlPath).
		Str("pdf", pdfPath).
		Msg("rendered report artifacts")

	return &Artifacts{HTMLPath: htmlPath, PDFPath: pdfPath}, nil
}
