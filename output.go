package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/phobologic/eqfields/internal/model"
	"github.com/phobologic/eqfields/internal/toon"
)

func render(w io.Writer, format, root string, findings []model.Finding) error {
	switch format {
	case "text":
		for _, f := range findings {
			if _, err := fmt.Fprintln(w, formatText(f)); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	case "toon":
		_, err := fmt.Fprintln(w, toon.Encode(&toon.Report{Root: root, Findings: findings}))
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// formatText renders a finding the way compilers do: path:line:col: severity: message.
func formatText(f model.Finding) string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", f.Pos.File, f.Pos.Line, f.Pos.Column, f.Severity, f.Message)
}
