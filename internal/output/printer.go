package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format selects how results are rendered on stdout.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat accepts the -o flag value, case-insensitively.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q, expected one of: table, json, yaml", raw)
}

// Table is a titled grid of already-formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Printer renders command results. Only results go through it; progress
// and diagnostics are written to stderr elsewhere.
type Printer struct {
	out    io.Writer
	format Format
}

func NewPrinter(out io.Writer, format Format) *Printer {
	if format == "" {
		format = FormatTable
	}
	return &Printer{out: out, format: format}
}

func (p *Printer) Format() Format { return p.format }

// Structured writes v as JSON or YAML. Table mode falls back to JSON for
// records that have no tabular form.
func (p *Printer) Structured(v any) error {
	if p.format == FormatYAML {
		return WriteYAML(p.out, v)
	}
	return WriteJSON(p.out, v)
}

// List renders v in the structured formats, or the table built by toTable.
// An empty table prints the empty message instead.
func (p *Printer) List(v any, toTable func() Table, empty string) error {
	if p.format != FormatTable {
		return p.Structured(v)
	}
	t := toTable()
	if len(t.Rows) == 0 {
		return p.Println(empty)
	}
	p.Table(t)
	return nil
}

// Table renders t with tablewriter.
func (p *Printer) Table(t Table) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(t.Header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(t.Rows)
	table.Render()
}

func (p *Printer) Println(a ...any) error {
	_, err := fmt.Fprintln(p.out, a...)
	return err
}

func (p *Printer) Printf(format string, a ...any) error {
	_, err := fmt.Fprintf(p.out, format, a...)
	return err
}

// WriteJSON writes v indented by two spaces with a trailing newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteYAML writes v as YAML. Values are routed through their JSON form so
// field names match the JSON output.
func WriteYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// APIErrorReport is what a non-2xx response is rendered as.
type APIErrorReport struct {
	StatusCode int `json:"status_code"`
	Error      any `json:"error"`
}

// WriteAPIError renders a failed response as
// {"status_code": N, "error": payload}.
func WriteAPIError(w io.Writer, statusCode int, payload any) error {
	return WriteJSON(w, APIErrorReport{StatusCode: statusCode, Error: payload})
}

// Dollars formats an hourly price in cents.
func Dollars(cents int) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

// OrDash returns "-" for empty strings.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
