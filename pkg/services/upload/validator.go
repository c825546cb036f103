package upload

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

type ValidatorConfig struct {
	MaxFileSize int64
	MaxRows     int
	Extensions  []string
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxFileSize: 10 << 20, // 10 MiB
		MaxRows:     10000,
		Extensions:  []string{".csv"},
	}
}

// Validator rejects malformed uploads before any persistence happens.
// It is a pure function over the input bytes and its configuration.
type Validator struct {
	config ValidatorConfig
}

func NewValidator(config ValidatorConfig) *Validator {
	if config.MaxFileSize == 0 {
		config = DefaultValidatorConfig()
	}
	return &Validator{config: config}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Validate runs the checks in order, short-circuiting on the first failure.
// On success the result carries the decoded header and rows so the parser
// does not decode the upload a second time.
func (v *Validator) Validate(fileBytes []byte, filename string) domain.ValidationResult {
	if int64(len(fileBytes)) > v.config.MaxFileSize {
		return failure(domain.ValidationFileTooLarge,
			"file is %d bytes, limit is %d bytes", len(fileBytes), v.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !v.acceptedExtension(ext) {
		return failure(domain.ValidationUnsupportedFileType,
			"extension %q is not accepted, expected one of %s", ext, strings.Join(v.config.Extensions, ", "))
	}

	text, encodingName, ok := decode(fileBytes)
	if !ok {
		return failure(domain.ValidationUndecodable, "file is not decodable with any supported encoding")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // vendors pad rows inconsistently
	records, err := reader.ReadAll()
	if err != nil {
		return failure(domain.ValidationNoValidContent, "csv structure is invalid: %v", err)
	}

	if len(records) == 0 {
		return failure(domain.ValidationEmptyFile, "file contains no rows")
	}

	header := records[0]
	if missing := missingRequired(header); len(missing) > 0 {
		return failure(domain.ValidationMissingColumns,
			"required columns missing: %s", strings.Join(missing, ", "))
	}

	rows := records[1:]
	if len(rows) == 0 {
		return failure(domain.ValidationEmptyFile, "file contains a header but no data rows")
	}
	if len(rows) > v.config.MaxRows {
		return failure(domain.ValidationTooManyRows,
			"file contains %d rows, limit is %d", len(rows), v.config.MaxRows)
	}

	if !hasCompleteRow(header, rows) {
		return failure(domain.ValidationNoValidContent,
			"no row has values for all required columns")
	}

	return domain.ValidationResult{
		OK:       true,
		Header:   header,
		Rows:     rows,
		Encoding: encodingName,
	}
}

func (v *Validator) acceptedExtension(ext string) bool {
	for _, accepted := range v.config.Extensions {
		if strings.EqualFold(ext, accepted) {
			return true
		}
	}
	return false
}

// decode tries the supported encodings in priority order. Latin-1 accepts
// any byte sequence, so it acts as the effective fallback for non-UTF-8 input.
func decode(fileBytes []byte) (string, string, bool) {
	if bytes.HasPrefix(fileBytes, utf8BOM) {
		stripped := fileBytes[len(utf8BOM):]
		if utf8.Valid(stripped) {
			return string(stripped), "utf-8-bom", true
		}
	}
	if utf8.Valid(fileBytes) {
		return string(fileBytes), "utf-8", true
	}

	fallbacks := []struct {
		name    string
		decoder *encoding.Decoder
	}{
		{"latin-1", charmap.ISO8859_1.NewDecoder()},
		{"windows-1252", charmap.Windows1252.NewDecoder()},
	}
	for _, fb := range fallbacks {
		decoded, err := fb.decoder.Bytes(fileBytes)
		if err != nil {
			continue
		}
		return string(decoded), fb.name, true
	}
	return "", "", false
}

func hasCompleteRow(header []string, rows [][]string) bool {
	idx := columnIndex(header)
	for _, row := range rows {
		complete := true
		for _, field := range requiredFields {
			pos := idx[field]
			if pos >= len(row) || strings.TrimSpace(row[pos]) == "" {
				complete = false
				break
			}
		}
		if complete {
			return true
		}
	}
	return false
}

func failure(code domain.ValidationCode, format string, args ...any) domain.ValidationResult {
	return domain.ValidationResult{Err: domain.NewValidationError(code, format, args...)}
}
