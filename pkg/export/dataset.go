package export

import "fmt"

// Format identifies a rendered document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatCSV, FormatPDF:
		return Format(raw), nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// SummaryLine is a labelled total printed after the table.
type SummaryLine struct {
	Label string
	Value string
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	Summary []SummaryLine
}

// Renderer turns a dataset into document bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// RendererFor returns the renderer for a format.
func RendererFor(format Format) Renderer {
	if format == FormatPDF {
		return NewPDFExporter()
	}
	return NewCSVExporter()
}
