package project

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"kmetrics/internal/syntax"
)

// longLineThreshold is the trimmed length above which a line counts as long.
const longLineThreshold = 100

// controlKeywordRe matches a branch or loop keyword as a whole word.
var controlKeywordRe = regexp.MustCompile(`\b(if|else|for|while|do|when|switch|case|try|catch)\b`)

// Summary is the project overview printed by `kmetrics summary`.
type Summary struct {
	Files        int              `json:"files" yaml:"files"`
	ParseErrors  int              `json:"parseErrors" yaml:"parseErrors"`
	Packages     int              `json:"packages" yaml:"packages"`
	Classes      int              `json:"classes" yaml:"classes"`
	Interfaces   int              `json:"interfaces" yaml:"interfaces"`
	Functions    int              `json:"functions" yaml:"functions"`
	Properties   int              `json:"properties" yaml:"properties"`
	LOC          int              `json:"loc" yaml:"loc"`
	SLOC         int              `json:"sloc" yaml:"sloc"`
	LLOC         int              `json:"lloc" yaml:"lloc"`
	CLOC         int              `json:"cloc" yaml:"cloc"`
	CommentRatio float64          `json:"commentRatio" yaml:"commentRatio"`
	LongLines    int              `json:"longLines" yaml:"longLines"`
	ControlLines int              `json:"controlLines" yaml:"controlLines"`
	// MCCPer1000LLOC and SmellsPer1000LLOC are zero when LLOC is zero.
	MCCPer1000LLOC    float64 `json:"mccPer1000Lloc" yaml:"mccPer1000Lloc"`
	SmellsPer1000LLOC float64 `json:"smellsPer1000Lloc" yaml:"smellsPer1000Lloc"`
	// NonDefaultConstructors counts classes whose primary constructor
	// takes at least one parameter.
	NonDefaultConstructors int              `json:"nonDefaultConstructors" yaml:"nonDefaultConstructors"`
	ByPackage              []PackageSummary `json:"byPackage" yaml:"byPackage"`
}

// PackageSummary lists what one package declares.
type PackageSummary struct {
	Package    string   `json:"package" yaml:"package"`
	Files      []string `json:"files" yaml:"files"`
	Classes    []string `json:"classes" yaml:"classes"`
	Functions  []string `json:"functions" yaml:"functions"`
	Properties []string `json:"properties" yaml:"properties"`
}

// LineCounts holds the physical line counts of one text.
type LineCounts struct {
	LOC          int
	SLOC         int
	LLOC         int
	CLOC         int
	LongLines    int
	ControlLines int
}

// CountLines counts physical lines. Lines whose trimmed text starts with
// "//" are comment lines; other non-blank lines are source lines and also
// logical lines. A source line containing a control keyword is a control
// line.
func CountLines(text string) LineCounts {
	var c LineCounts
	if text == "" {
		return c
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	c.LOC = len(lines)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "//"):
			c.CLOC++
		case trimmed != "":
			c.SLOC++
			c.LLOC++
			if controlKeywordRe.MatchString(trimmed) {
				c.ControlLines++
			}
		}
		if len(trimmed) > longLineThreshold {
			c.LongLines++
		}
	}
	return c
}

// Summary aggregates line counts and declaration inventories. Files that
// failed to parse contribute lines but no declarations.
func (idx *Index) Summary() Summary {
	var s Summary
	byPkg := make(map[string]*PackageSummary)

	for _, f := range idx.Files {
		s.Files++
		lc := CountLines(f.Text)
		s.LOC += lc.LOC
		s.SLOC += lc.SLOC
		s.LLOC += lc.LLOC
		s.CLOC += lc.CLOC
		s.LongLines += lc.LongLines
		s.ControlLines += lc.ControlLines

		if f.Result == nil {
			s.ParseErrors++
			continue
		}

		ps, ok := byPkg[f.Result.Package]
		if !ok {
			ps = &PackageSummary{Package: f.Result.Package}
			byPkg[f.Result.Package] = ps
		}
		ps.Files = append(ps.Files, path.Base(f.Path))

		for i := range f.Result.Declarations {
			d := &f.Result.Declarations[i]
			if d.Kind == syntax.KindInterface {
				s.Interfaces++
			} else {
				s.Classes++
				ps.Classes = append(ps.Classes, d.Name)
				if d.CtorParams > 0 {
					s.NonDefaultConstructors++
				}
			}
			for _, m := range d.Members() {
				if m.IsFunction() {
					s.Functions++
					ps.Functions = append(ps.Functions, m.Name)
				} else {
					s.Properties++
					ps.Properties = append(ps.Properties, m.Name)
				}
			}
		}
		for _, m := range f.Result.TopLevel {
			s.Functions++
			ps.Functions = append(ps.Functions, m.Name)
		}
	}

	if s.SLOC > 0 {
		s.CommentRatio = float64(s.CLOC) / float64(s.SLOC) * 100
	}
	if s.LLOC > 0 {
		s.MCCPer1000LLOC = float64(s.ControlLines) / (float64(s.LLOC) / 1000)
		s.SmellsPer1000LLOC = float64(s.LongLines) / (float64(s.LLOC) / 1000)
	}

	s.Packages = len(byPkg)
	s.ByPackage = make([]PackageSummary, 0, len(byPkg))
	for _, ps := range byPkg {
		s.ByPackage = append(s.ByPackage, *ps)
	}
	sort.Slice(s.ByPackage, func(i, j int) bool { return s.ByPackage[i].Package < s.ByPackage[j].Package })
	return s
}
