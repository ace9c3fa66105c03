package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText renders results with the value's String method.
	FormatText OutputFormat = "text"
	// FormatJSON renders results as indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV renders tabular results as CSV.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat converts a --format flag value into an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, FormatJSON, FormatCSV:
		return OutputFormat(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text, json, or csv)", s)
	}
}

// Formatter renders a command result to a writer.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// Tabular is implemented by results that can render themselves as a
// header row plus data rows, for CSV output.
type Tabular interface {
	Table() (header []string, rows [][]string)
}

type textFormatter struct{}

func (textFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

type jsonFormatter struct{}

func (jsonFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type csvFormatter struct{}

func (csvFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("%T does not implement cli.Tabular", data)
	}

	cw := csv.NewWriter(w)
	header, rows := t.Table()
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// NewFormatter returns the formatter for the given format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return jsonFormatter{}
	case FormatCSV:
		return csvFormatter{}
	default:
		return textFormatter{}
	}
}
