package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format is an output rendering.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatHuman  Format = "human"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatHuman, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Write renders rep to w. SQLite output needs a file and goes through
// WriteSQLite instead.
func Write(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rep.Rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatHuman:
		return writeHuman(w, rep)
	case FormatSQLite:
		return fmt.Errorf("sqlite output requires a file path")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeHuman(w io.Writer, rep *Report) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("kmetrics report (%s mode)\n", rep.Mode))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(rep.Rows) > 0 {
		s := rep.Rows[0]
		b.WriteString(fmt.Sprintf("Project: NOI=%d  NOM=%d  NOMNAMM=%d\n\n", s.NOI, s.NOM, s.NOMNAMM))
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tCLASS\tMETHOD\tLOC\tNEST\tCC\tWOC\tWMC\tWMCNAMM\tAMW\tLCOM5\tNOC\tNDC\tNOCS\t")
	for _, r := range rep.Rows {
		method := r.Method
		if r.Error != "" {
			method = fmt.Sprintf("%s (%s)", r.Method, r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.2f\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t%d\t\n",
			r.Package, r.Class, method, r.LOC, r.MaxNesting, r.CC, r.WOC,
			r.WMC, r.WMCNAMM, r.AMW, r.LCOM5, r.NOC, r.NDC, r.NOCSPackage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Inheritance) > 0 {
		b.WriteString("\nInheritance:\n")
		for _, n := range rep.Inheritance {
			ext := ""
			if n.External {
				ext = " (external)"
			}
			b.WriteString(fmt.Sprintf("  %s: %d children%s\n", n.Name, n.Children, ext))
		}
	}

	if len(rep.Skipped) > 0 {
		b.WriteString("\nSkipped files:\n")
		for _, s := range rep.Skipped {
			b.WriteString(fmt.Sprintf("  %s: %s\n", s.Path, s.Reason))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary renders only the project summary.
func WriteSummary(w io.Writer, rep *Report, format Format) error {
	s := rep.Summary
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatHuman, FormatCSV, "":
	default:
		return fmt.Errorf("unsupported summary format: %s", format)
	}

	var b strings.Builder
	b.WriteString("Summary Report\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	line := func(label, format string, args ...any) {
		b.WriteString(fmt.Sprintf("%-19s"+format+"\n", append([]any{label + ":"}, args...)...))
	}
	line("Packages", "%d", s.Packages)
	line("Kotlin files", "%d (%d failed to parse)", s.Files, s.ParseErrors)
	line("Classes", "%d", s.Classes)
	line("Interfaces", "%d", s.Interfaces)
	line("Functions", "%d", s.Functions)
	line("Properties", "%d", s.Properties)
	line("Non-default ctors", "%d", s.NonDefaultConstructors)
	line("LOC", "%d", s.LOC)
	line("SLOC", "%d", s.SLOC)
	line("LLOC", "%d", s.LLOC)
	line("CLOC", "%d", s.CLOC)
	line("Comment ratio", "%.1f%%", s.CommentRatio)
	line("Control lines", "%d", s.ControlLines)
	line("MCC/1000 LLOC", "%.2f", s.MCCPer1000LLOC)
	line("Long lines", "%d", s.LongLines)
	line("Smells/1000 LLOC", "%.2f", s.SmellsPer1000LLOC)

	for _, p := range s.ByPackage {
		b.WriteString(fmt.Sprintf("\n%s\n", p.Package))
		b.WriteString(fmt.Sprintf("  files:      %s\n", strings.Join(p.Files, ", ")))
		b.WriteString(fmt.Sprintf("  classes:    %s\n", strings.Join(p.Classes, ", ")))
		b.WriteString(fmt.Sprintf("  functions:  %s\n", strings.Join(p.Functions, ", ")))
		b.WriteString(fmt.Sprintf("  properties: %s\n", strings.Join(p.Properties, ", ")))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
