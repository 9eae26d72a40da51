package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depclean/pkg/errors"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// Formats lists every supported export format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatDOT, FormatSVG}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be one of %v)", format, Formats)
}

// TextOptions tunes the text export.
type TextOptions struct {
	// Detailed lists every unused import and usage site instead of totals.
	Detailed bool
	// Color enables lipgloss styling.
	Color bool
}

// Write renders r in the given format.
func Write(w io.Writer, r *Report, format string, opts TextOptions) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r, opts)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(r))
		return err
	case FormatSVG:
		svg, err := RenderSVG(ToDOT(r))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	return ValidateFormat(format)
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
