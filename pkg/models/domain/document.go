package domain

// Document is the shaped, render-ready form of a report: what a generator
// strategy hands to the HTML template and the PDF engine.
type Document struct {
	Title        string
	ReportID     string
	ClientID     string
	Type         ReportType
	Period       TimePeriod
	Sections     []DocumentSection
	TotalSavings float64
	Currency     string
}

// DocumentSection is a logical section in a rendered document
type DocumentSection struct {
	Title   string
	Summary map[string]any
	Items   []DocumentItem
	Empty   bool // true when the strategy matched no recommendations
}

// DocumentItem is one rendered line within a section
type DocumentItem struct {
	Name        string
	Value       any
	Unit        string
	Description string
}
