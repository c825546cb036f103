package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// documentTemplate is the one styled layout all report types share;
// strategies differentiate the content, not the chrome.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #1a1a2e; }
h1 { border-bottom: 2px solid #16213e; padding-bottom: 0.3em; }
h2 { color: #16213e; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5em; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f0f3f8; }
.summary dt { font-weight: bold; float: left; clear: left; margin-right: 0.5em; }
.summary dd { margin: 0 0 0.3em 0; }
.empty { color: #666; font-style: italic; padding: 1em; background: #f8f8f8; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">
Report {{.ReportID}} · Client {{.ClientID}} ·
{{.Period.Start.Format "2006-01-02"}} to {{.Period.End.Format "2006-01-02"}} ({{.Period.Duration}} days)
</p>
<p><strong>Total estimated savings:</strong> {{money .TotalSavings .Currency}}</p>
{{range .Sections}}
<h2>{{.Title}}</h2>
{{if .Empty}}
<p class="empty">{{index .Summary "note"}}</p>
{{else}}
{{if .Summary}}
<dl class="summary">
{{range $key, $value := .Summary}}<dt>{{$key}}</dt><dd>{{$value}}</dd>
{{end}}</dl>
{{end}}
{{if .Items}}
<table>
<tr><th>Name</th><th>Value</th><th>Unit</th><th>Description</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Value}}</td><td>{{.Unit}}</td><td>{{.Description}}</td></tr>
{{end}}</table>
{{end}}
{{end}}
{{end}}
</body>
</html>`

var compiledTemplate = template.Must(
	template.New("document").Funcs(template.FuncMap{
		"money": func(amount float64, currency string) string {
			return fmt.Sprintf("%.2f %s", amount, currency)
		},
	}).Parse(documentTemplate),
)

// AssembleHTML renders a shaped document into the styled markup handed to
// the PDF engine. Kept separate from the engine call so tests can assert
// on content without a real renderer.
func AssembleHTML(doc domain.Document) (string, error) {
	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("assemble document markup: %w", err)
	}
	return buf.String(), nil
}
