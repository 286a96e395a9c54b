package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Columns is the CSV header, in order.
var Columns = []string{
	"File", "Package", "Class", "Method", "LOC", "MaxNesting", "CC", "NOLV",
	"WOC", "WMC", "WMCNAMM", "AMW", "LCOM5", "NOC", "NDC", "NOI", "NOM", "NOMNAMM",
	"NOCSPackage", "Error",
}

// WriteCSV writes a header row and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r Row) record() []string {
	return []string{
		r.File,
		r.Package,
		r.Class,
		r.Method,
		strconv.Itoa(r.LOC),
		strconv.Itoa(r.MaxNesting),
		strconv.Itoa(r.CC),
		strconv.Itoa(r.NOLV),
		formatFloat(r.WOC),
		strconv.Itoa(r.WMC),
		strconv.Itoa(r.WMCNAMM),
		formatFloat(r.AMW),
		formatFloat(r.LCOM5),
		strconv.Itoa(r.NOC),
		strconv.Itoa(r.NDC),
		strconv.Itoa(r.NOI),
		strconv.Itoa(r.NOM),
		strconv.Itoa(r.NOMNAMM),
		strconv.Itoa(r.NOCSPackage),
		r.Error,
	}
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses output of WriteCSV back into rows, preserving order.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV: missing header")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}

func parseRecord(rec []string) (Row, error) {
	p := fieldParser{rec: rec}
	row := Row{
		File:        rec[0],
		Package:     rec[1],
		Class:       rec[2],
		Method:      rec[3],
		LOC:         p.atoi(4),
		MaxNesting:  p.atoi(5),
		CC:          p.atoi(6),
		NOLV:        p.atoi(7),
		WOC:         p.parseFloat(8),
		WMC:         p.atoi(9),
		WMCNAMM:     p.atoi(10),
		AMW:         p.parseFloat(11),
		LCOM5:       p.parseFloat(12),
		NOC:         p.atoi(13),
		NDC:         p.atoi(14),
		NOI:         p.atoi(15),
		NOM:         p.atoi(16),
		NOMNAMM:     p.atoi(17),
		NOCSPackage: p.atoi(18),
		Error:       rec[19],
	}
	return row, p.err
}

// fieldParser keeps the first conversion error.
type fieldParser struct {
	rec []string
	err error
}

func (p *fieldParser) atoi(i int) int {
	v, err := strconv.Atoi(p.rec[i])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", Columns[i], err)
	}
	return v
}

func (p *fieldParser) parseFloat(i int) float64 {
	v, err := strconv.ParseFloat(p.rec[i], 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", Columns[i], err)
	}
	return v
}
