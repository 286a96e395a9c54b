package project

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"kmetrics/internal/syntax"
)

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LineCounts
	}{
		{"empty", "", LineCounts{}},
		{"no trailing newline", "a\nb", LineCounts{LOC: 2, SLOC: 2, LLOC: 2}},
		{
			"comments and blanks",
			"package a\n\n// comment\nclass A {\n    // inner\n    val x = 1\n}\n",
			LineCounts{LOC: 7, SLOC: 4, LLOC: 4, CLOC: 2},
		},
		{"long line", strings.Repeat("x", 101) + "\n", LineCounts{LOC: 1, SLOC: 1, LLOC: 1, LongLines: 1}},
		{
			"control lines",
			"if (a) {\n} else {\n}\n// if in a comment\nwhile (b) x++\nval diff = 1\nfor (i in l) when (i) {\n}\n",
			LineCounts{LOC: 8, SLOC: 7, LLOC: 7, CLOC: 1, ControlLines: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountLines(tt.text); got != tt.want {
				t.Errorf("CountLines() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIndex_Summary(t *testing.T) {
	idx := buildFleet(t, 1)
	s := idx.Summary()

	if s.Files != 4 || s.ParseErrors != 1 {
		t.Errorf("Files=%d ParseErrors=%d, want 4 and 1", s.Files, s.ParseErrors)
	}
	if s.Packages != 2 {
		t.Errorf("Packages = %d, want 2", s.Packages)
	}
	if s.Classes != 5 || s.Interfaces != 1 {
		t.Errorf("Classes=%d Interfaces=%d, want 5 and 1", s.Classes, s.Interfaces)
	}
	if s.Functions != 4 || s.Properties != 2 {
		t.Errorf("Functions=%d Properties=%d, want 4 and 2", s.Functions, s.Properties)
	}
	if s.SLOC == 0 || s.LOC < s.SLOC {
		t.Errorf("line counts look wrong: LOC=%d SLOC=%d", s.LOC, s.SLOC)
	}
	if s.CLOC != 0 || s.CommentRatio != 0 {
		t.Errorf("CLOC=%d CommentRatio=%v, want 0", s.CLOC, s.CommentRatio)
	}

	if len(s.ByPackage) != 2 || s.ByPackage[0].Package != "p.a" {
		t.Fatalf("ByPackage = %+v", s.ByPackage)
	}
	pa := s.ByPackage[0]
	if !reflect.DeepEqual(pa.Files, []string{"Vehicles.kt", "Engine.kt"}) {
		t.Errorf("p.a files = %v", pa.Files)
	}
	if !reflect.DeepEqual(pa.Classes, []string{"Vehicle", "Car", "Bike"}) {
		t.Errorf("p.a classes = %v", pa.Classes)
	}
}

func TestIndex_SummaryCommentRatio(t *testing.T) {
	idx := &Index{Files: []File{{Path: "A.kt", Text: "// one\n// two\nval a = 1\nval b = 2\n"}}}
	s := idx.Summary()

	if s.CommentRatio != 100 {
		t.Errorf("CommentRatio = %v, want 100", s.CommentRatio)
	}
	if s.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1 for a file without a parse result", s.ParseErrors)
	}
}

func TestIndex_SummaryDensities(t *testing.T) {
	long := "val s = \"" + strings.Repeat("x", 100) + "\"\n"
	text := "package p\n\nclass A(val x: Int) {\n    fun f() {\n        if (x > 0) g()\n    }\n}\n" + long
	res, err := syntax.NewTextAdapter().Parse(context.Background(), []byte(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	idx := &Index{Files: []File{{Path: "A.kt", Text: text, Result: res}}}
	s := idx.Summary()

	if s.LLOC != 7 || s.ControlLines != 1 || s.LongLines != 1 {
		t.Fatalf("LLOC=%d ControlLines=%d LongLines=%d, want 7, 1 and 1", s.LLOC, s.ControlLines, s.LongLines)
	}
	want := 1 / (7.0 / 1000)
	if s.MCCPer1000LLOC != want {
		t.Errorf("MCCPer1000LLOC = %v, want %v", s.MCCPer1000LLOC, want)
	}
	if s.SmellsPer1000LLOC != want {
		t.Errorf("SmellsPer1000LLOC = %v, want %v", s.SmellsPer1000LLOC, want)
	}
	if s.NonDefaultConstructors != 1 {
		t.Errorf("NonDefaultConstructors = %d, want 1", s.NonDefaultConstructors)
	}
}

func TestIndex_SummaryNoLogicalLines(t *testing.T) {
	idx := &Index{Files: []File{{Path: "A.kt", Text: "// only\n\n"}}}
	s := idx.Summary()
	if s.MCCPer1000LLOC != 0 || s.SmellsPer1000LLOC != 0 {
		t.Errorf("densities = %v and %v, want 0 without logical lines", s.MCCPer1000LLOC, s.SmellsPer1000LLOC)
	}
}
