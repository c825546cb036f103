package upload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Parser turns a validated upload into recommendation drafts. It produces
// an in-memory slice only; persistence is a separate step so a store
// failure can be retried without re-parsing.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse emits exactly one draft per data row. Required fields that are
// empty pass through as empty strings; downstream consumers handle them
// defensively. Unrecognized columns survive into Extras verbatim.
func (p *Parser) Parse(validated domain.ValidationResult) ([]domain.RecommendationDraft, error) {
	if !validated.OK {
		return nil, fmt.Errorf("cannot parse a rejected upload: %v", validated.Err)
	}

	idx := columnIndex(validated.Header)
	extras := extraColumns(validated.Header, idx)

	drafts := make([]domain.RecommendationDraft, 0, len(validated.Rows))
	for _, row := range validated.Rows {
		draft := domain.RecommendationDraft{
			Category: normalizeCategory(cell(row, idx, FieldCategory)),
			Impact:   normalizeImpact(cell(row, idx, FieldImpact)),
			Text:     cell(row, idx, FieldText),
			Resource: cell(row, idx, FieldResource),
			Currency: cell(row, idx, FieldCurrency),
		}
		if raw := cell(row, idx, FieldSavings); raw != "" {
			if savings, ok := parseSavings(raw); ok {
				draft.EstimatedSavings = &savings
			}
		}
		for pos, name := range extras {
			if pos < len(row) && strings.TrimSpace(row[pos]) != "" {
				if draft.Extras == nil {
					draft.Extras = make(map[string]string)
				}
				draft.Extras[name] = row[pos]
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func cell(row []string, idx map[string]int, field string) string {
	pos, ok := idx[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

func normalizeCategory(raw string) domain.Category {
	c := strings.ToLower(strings.TrimSpace(raw))
	c = strings.ReplaceAll(c, "_", " ")
	c = strings.ReplaceAll(c, " ", "-")
	switch c {
	case "operational", "opex", "operationalexcellence":
		return domain.CategoryOperational
	}
	return domain.Category(c)
}

func normalizeImpact(raw string) domain.Impact {
	return domain.Impact(strings.ToLower(strings.TrimSpace(raw)))
}

// parseSavings tolerates currency symbols and thousands separators,
// e.g. "$1,250.40". Empty and unparsable cells yield absent, not zero.
func parseSavings(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimLeft(cleaned, "$€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
