package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depclean/pkg/report"
)

// encode writes v as JSON or YAML according to format.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("cannot encode as %s", format)
}

// structured reports whether the --format value is machine-readable.
func (c *CLI) structured() bool {
	return c.flags.format == report.FormatJSON || c.flags.format == report.FormatYAML
}
