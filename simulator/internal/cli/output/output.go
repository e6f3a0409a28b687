package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// Format selects how a command renders its result.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

func Success(w io.Writer, format string, a ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

func Error(w io.Writer, format string, a ...any) {
	errorColor.Fprintf(w, "✗ "+format+"\n", a...)
}

func Info(w io.Writer, format string, a ...any) {
	infoColor.Fprintf(w, format+"\n", a...)
}

func Warn(w io.Writer, format string, a ...any) {
	warnColor.Fprintf(w, "⚠ "+format+"\n", a...)
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML renders v through its JSON form so both formats share field names.
func YAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// Render writes v as JSON or YAML. Table output is left to the caller.
func Render(w io.Writer, f Format, v any) error {
	if f == FormatYAML {
		return YAML(w, v)
	}
	return JSON(w, v)
}

// StatusColor paints a detection status the way the timeline console does.
func StatusColor(s models.LogStatus) *color.Color {
	switch s {
	case models.LogDetected:
		return successColor
	case models.LogBypass:
		return errorColor
	case models.LogPending:
		return warnColor
	default:
		return infoColor
	}
}

// OutcomeColor paints a run outcome.
func OutcomeColor(o models.Outcome) *color.Color {
	if o == models.OutcomeDetected {
		return successColor
	}
	return errorColor
}

type Table struct {
	headers []string
	rows    [][]string
	paint   func(col int, cell string) *color.Color
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Paint sets a per-cell color picker. Widths are computed on the plain
// text, so colored cells stay aligned.
func (t *Table) Paint(fn func(col int, cell string) *color.Color) {
	t.paint = fn
}

func (t *Table) Render(w io.Writer) {
	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len([]rune(header))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprint(w, pad(header, widths[i]))
	}
	fmt.Fprintln(w)

	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			text := pad(cell, widths[i])
			if t.paint != nil {
				if c := t.paint(i, cell); c != nil {
					c.Fprint(w, text)
					continue
				}
			}
			fmt.Fprint(w, text)
		}
		fmt.Fprintln(w)
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-len([]rune(s))+2)
}
