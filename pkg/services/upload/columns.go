package upload

import "strings"

// Logical fields of a vendor export. Matching is case-insensitive and
// tolerant of the synonym spellings seen across vendor exports.
const (
	FieldCategory = "category"
	FieldImpact   = "business impact"
	FieldText     = "recommendation"
	FieldResource = "affected resource"
	FieldSavings  = "estimated savings"
	FieldCurrency = "currency"
)

var fieldSynonyms = map[string][]string{
	FieldCategory: {"category", "recommendation category"},
	FieldImpact:   {"business impact", "impact", "impact level"},
	FieldText:     {"recommendation", "recommendation text", "recommendation description"},
	FieldResource: {"affected resource", "resource", "resource id", "resource_id"},
	FieldSavings:  {"estimated savings", "savings", "estimated monthly savings", "monthly savings"},
	FieldCurrency: {"currency", "currency code"},
}

var requiredFields = []string{FieldCategory, FieldImpact, FieldText}

// columnIndex maps logical field -> column position for one header row.
// Columns that match no logical field are returned by extraColumns.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for field, synonyms := range fieldSynonyms {
		for _, syn := range synonyms {
			if pos := findColumn(header, syn); pos >= 0 {
				idx[field] = pos
				break
			}
		}
	}
	return idx
}

func extraColumns(header []string, idx map[string]int) map[int]string {
	claimed := make(map[int]bool, len(idx))
	for _, pos := range idx {
		claimed[pos] = true
	}
	extras := make(map[int]string)
	for i, name := range header {
		if !claimed[i] && strings.TrimSpace(name) != "" {
			extras[i] = strings.TrimSpace(name)
		}
	}
	return extras
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func missingRequired(header []string) []string {
	idx := columnIndex(header)
	var missing []string
	for _, field := range requiredFields {
		if _, ok := idx[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
