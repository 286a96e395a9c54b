// Package report assembles the flat metrics table and renders it.
package report

import (
	"kmetrics/internal/project"
	"kmetrics/internal/source"
	"kmetrics/internal/syntax"
)

// Placeholder values for rows that do not describe a real method.
const (
	ErrorName = "Error"
	NoneName  = "None"

	NoClassDeclaration = "No class declaration found"
	ClassHasNoBody     = "Class has no body"
	NoMethodsFound     = "No methods found"
)

// Row is one line of the report: a method, or a placeholder for an empty
// class, an empty file or a file that failed to parse.
type Row struct {
	File        string  `json:"file" yaml:"file"`
	Package     string  `json:"package" yaml:"package"`
	Class       string  `json:"class" yaml:"class"`
	Method      string  `json:"method" yaml:"method"`
	LOC         int     `json:"loc" yaml:"loc"`
	MaxNesting  int     `json:"maxNesting" yaml:"maxNesting"`
	CC          int     `json:"cc" yaml:"cc"`
	NOLV        int     `json:"nolv" yaml:"nolv"`
	WOC         float64 `json:"woc" yaml:"woc"`
	WMC         int     `json:"wmc" yaml:"wmc"`
	WMCNAMM     int     `json:"wmcNamm" yaml:"wmcNamm"`
	AMW         float64 `json:"amw" yaml:"amw"`
	LCOM5       float64 `json:"lcom5" yaml:"lcom5"`
	NOC         int     `json:"noc" yaml:"noc"`
	NDC         int     `json:"ndc" yaml:"ndc"`
	NOI         int     `json:"noi" yaml:"noi"`
	NOM         int     `json:"nom" yaml:"nom"`
	NOMNAMM     int     `json:"nomnamm" yaml:"nomnamm"`
	NOCSPackage int     `json:"nocsPackage" yaml:"nocsPackage"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsPlaceholder reports whether the row stands in for missing methods.
func (r Row) IsPlaceholder() bool {
	return r.Error != ""
}

// Report is a complete analysis result.
type Report struct {
	RunID       string                 `json:"runId" yaml:"runId"`
	Root        string                 `json:"root" yaml:"root"`
	Mode        string                 `json:"mode" yaml:"mode"`
	Rows        []Row                  `json:"rows" yaml:"rows"`
	Inheritance []project.Inheritance  `json:"inheritance" yaml:"inheritance"`
	Packages    []project.PackageCount `json:"packages" yaml:"packages"`
	Summary     project.Summary        `json:"summary" yaml:"summary"`
	Skipped     []source.Skipped       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// New builds the report for idx.
func New(runID string, idx *project.Index) *Report {
	return &Report{
		RunID:       runID,
		Root:        idx.Root,
		Mode:        string(idx.Mode),
		Rows:        Assemble(idx),
		Inheritance: idx.Inheritance(),
		Packages:    idx.Packages(),
		Summary:     idx.Summary(),
	}
}

// Assemble produces the rows in file order, then declaration order, then
// member order. Interfaces produce no rows.
func Assemble(idx *project.Index) []Row {
	scalars := idx.Scalars()
	base := Row{NOI: scalars.NOI, NOM: scalars.NOM, NOMNAMM: scalars.NOMNAMM}

	var rows []Row
	for i := range idx.Files {
		rows = append(rows, fileRows(idx, &idx.Files[i], base)...)
	}
	return rows
}

func fileRows(idx *project.Index, f *project.File, base Row) []Row {
	if f.ParseErr != nil {
		r := base
		r.File = f.Path
		r.Package, r.Class, r.Method = ErrorName, ErrorName, ErrorName
		r.Error = f.ParseErr.Error()
		return []Row{r}
	}

	pkg := f.Result.Package
	base.File = f.Path
	base.Package = pkg
	base.NOCSPackage = idx.NOCS(pkg)

	var rows []Row
	for i := range f.Result.Declarations {
		decl := &f.Result.Declarations[i]
		if decl.Kind != syntax.KindClass {
			continue
		}
		rows = append(rows, classRows(idx, decl, f, i, base)...)
	}

	// Files that declare nothing at all. Interface-only files produce no rows.
	if len(f.Result.Declarations) == 0 {
		r := base
		r.Class, r.Method = NoneName, NoneName
		r.Error = NoClassDeclaration
		rows = append(rows, r)
	}
	return rows
}

func classRows(idx *project.Index, decl *syntax.Declaration, f *project.File, i int, base Row) []Row {
	base.Class = decl.Name
	base.NOC = idx.NOC(decl.Name)
	if decl.CtorParams > 0 {
		base.NDC = 1
	}

	if !decl.HasBody() {
		r := base
		r.Method = NoneName
		r.Error = ClassHasNoBody
		return []Row{r}
	}

	c := f.Classes[i]
	if len(c.Methods) == 0 {
		r := base
		r.Method = NoneName
		r.Error = NoMethodsFound
		return []Row{r}
	}

	base.WMC = c.WMC
	base.WMCNAMM = c.WMCNAMM
	base.AMW = c.AMW
	base.LCOM5 = c.LCOM5

	rows := make([]Row, 0, len(c.Methods))
	for j, m := range c.Methods {
		r := base
		r.Method = m.Name
		r.LOC = m.LOC
		r.MaxNesting = m.MaxNesting
		r.CC = m.CC
		r.NOLV = m.NOLV
		r.WOC = c.WOC[j]
		rows = append(rows, r)
	}
	return rows
}
