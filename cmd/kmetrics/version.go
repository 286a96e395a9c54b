package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kmetrics/internal/syntax"
	"kmetrics/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(versionCmd)
}

// versionInfo adds the parser modes compiled into this binary.
type versionInfo struct {
	version.Build
	ParserModes []syntax.Mode `json:"parserModes"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := versionInfo{Build: version.Get(), ParserModes: []syntax.Mode{syntax.ModeText}}
	if syntax.ASTAvailable() {
		info.ParserModes = []syntax.Mode{syntax.ModeAST, syntax.ModeText}
	}

	out := cmd.OutOrStdout()
	if versionJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintln(out, info.Build.String())
	fmt.Fprintf(out, "Parsers: %v\n", info.ParserModes)
	return nil
}
