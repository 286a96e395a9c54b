// Package project builds the project-wide view of an analysis run. The
// first pass parses every file into an immutable per-file result; the
// second pass derives inheritance and project scalars from those results.
package project

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"kmetrics/internal/errors"
	"kmetrics/internal/metrics"
	"kmetrics/internal/source"
	"kmetrics/internal/syntax"
)

// File is one parsed source file. Result is nil when ParseErr is set;
// Classes is aligned with Result.Declarations.
type File struct {
	Path     string
	Text     string
	Result   *syntax.ParseResult
	ParseErr error
	Classes  []metrics.Class
}

// Package returns the parsed package name, or "" for failed files.
func (f *File) Package() string {
	if f.Result == nil {
		return ""
	}
	return f.Result.Package
}

// Scalars are the project-level counts repeated on every report row.
type Scalars struct {
	NOI     int `json:"noi" yaml:"noi"`
	NOM     int `json:"nom" yaml:"nom"`
	NOMNAMM int `json:"nomnamm" yaml:"nomnamm"`
}

// Options control Build. Workers bounds concurrent parsing; values below
// 1 mean 1.
type Options struct {
	Mode    syntax.Mode
	Workers int
	Logger  *slog.Logger
}

// Index is the read-only project model queried by the report assembler.
type Index struct {
	Root  string
	Mode  syntax.Mode
	Files []File

	scalars Scalars
	noc     map[string]int
	nocs    map[string]int
}

// Build parses every file in set and indexes the results.
func Build(ctx context.Context, set *source.Set, opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mode, err := syntax.Resolve(opts.Mode)
	if err != nil {
		return nil, err
	}

	files, err := parseAll(ctx, set.Files, mode, opts.Workers, logger)
	if err != nil {
		return nil, err
	}

	idx := &Index{Root: set.Root, Mode: mode, Files: files}
	idx.scalars = computeScalars(files)
	idx.noc = computeNOC(files)
	idx.nocs = computeNOCS(files)
	return idx, nil
}

// parseAll is the first pass. Each worker owns one adapter and writes only
// its own slots of the result slice.
func parseAll(ctx context.Context, srcs []source.File, mode syntax.Mode, workers int, logger *slog.Logger) ([]File, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(srcs) && len(srcs) > 0 {
		workers = len(srcs)
	}

	adapters := make(chan syntax.Adapter, workers)
	for i := 0; i < workers; i++ {
		a, err := syntax.New(mode)
		if err != nil {
			return nil, err
		}
		adapters <- a
	}

	files := make([]File, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a := <-adapters
			defer func() { adapters <- a }()

			files[i] = parseFile(gctx, a, srcs[i], logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func parseFile(ctx context.Context, a syntax.Adapter, src source.File, logger *slog.Logger) File {
	f := File{Path: src.Path, Text: src.Text}

	res, err := a.Parse(ctx, []byte(src.Text))
	if err != nil {
		logger.Warn("Failed to parse source file", "path", src.Path, "error", err.Error())
		f.ParseErr = errors.New(errors.ParseFailed, "cannot parse "+src.Path, err)
		return f
	}

	f.Result = res
	f.Classes = make([]metrics.Class, len(res.Declarations))
	for i := range res.Declarations {
		f.Classes[i] = metrics.ComputeClass(&res.Declarations[i])
	}
	return f
}

func computeScalars(files []File) Scalars {
	var s Scalars
	for _, f := range files {
		if f.Result == nil {
			continue
		}
		for i, d := range f.Result.Declarations {
			if d.Kind == syntax.KindInterface {
				s.NOI++
			}
			for _, m := range f.Classes[i].Methods {
				s.NOM++
				if !m.Accessor {
					s.NOMNAMM++
				}
			}
		}
	}
	return s
}

// computeNOC credits every supertype once per declaring child. Declared
// names start at zero; supertypes never declared locally get their own
// entry the first time they are referenced.
func computeNOC(files []File) map[string]int {
	noc := make(map[string]int)
	for _, f := range files {
		if f.Result == nil {
			continue
		}
		for _, d := range f.Result.Declarations {
			if _, ok := noc[d.Name]; !ok {
				noc[d.Name] = 0
			}
		}
	}
	for _, f := range files {
		if f.Result == nil {
			continue
		}
		for _, d := range f.Result.Declarations {
			seen := make(map[string]bool, len(d.Supertypes))
			for _, parent := range d.Supertypes {
				if parent == "" || seen[parent] {
					continue
				}
				seen[parent] = true
				noc[parent]++
			}
		}
	}
	return noc
}

func computeNOCS(files []File) map[string]int {
	nocs := make(map[string]int)
	for _, f := range files {
		if f.Result == nil {
			continue
		}
		for _, d := range f.Result.Declarations {
			if d.Kind == syntax.KindClass {
				nocs[f.Result.Package]++
			}
		}
	}
	return nocs
}

// Scalars returns NOI, NOM and NOMNAMM.
func (idx *Index) Scalars() Scalars {
	return idx.scalars
}

// NOC returns the number of children of name; 0 for unknown names.
func (idx *Index) NOC(name string) int {
	return idx.noc[name]
}

// NOCS returns the number of classes declared in pkg.
func (idx *Index) NOCS(pkg string) int {
	return idx.nocs[pkg]
}

// Inheritance is one node of the NOC table.
type Inheritance struct {
	Name     string `json:"name" yaml:"name"`
	Children int    `json:"children" yaml:"children"`
	External bool   `json:"external" yaml:"external"`
}

// Inheritance returns the full NOC table sorted by name. External marks
// supertypes with no local declaration.
func (idx *Index) Inheritance() []Inheritance {
	declared := make(map[string]bool)
	for _, f := range idx.Files {
		if f.Result == nil {
			continue
		}
		for _, d := range f.Result.Declarations {
			declared[d.Name] = true
		}
	}

	out := make([]Inheritance, 0, len(idx.noc))
	for name, n := range idx.noc {
		out = append(out, Inheritance{Name: name, Children: n, External: !declared[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PackageCount is one NOCS-package entry.
type PackageCount struct {
	Package string `json:"package" yaml:"package"`
	Classes int    `json:"classes" yaml:"classes"`
}

// Packages returns NOCS per package sorted by package name.
func (idx *Index) Packages() []PackageCount {
	out := make([]PackageCount, 0, len(idx.nocs))
	for pkg, n := range idx.nocs {
		out = append(out, PackageCount{Package: pkg, Classes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}
