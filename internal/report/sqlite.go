package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"kmetrics/internal/errors"
)

const sqliteSchema = `
	CREATE TABLE rows (
		seq INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL,
		file TEXT NOT NULL,
		package TEXT NOT NULL,
		class TEXT NOT NULL,
		method TEXT NOT NULL,
		loc INTEGER NOT NULL,
		max_nesting INTEGER NOT NULL,
		cc INTEGER NOT NULL,
		nolv INTEGER NOT NULL,
		woc REAL NOT NULL,
		wmc INTEGER NOT NULL,
		wmc_namm INTEGER NOT NULL,
		amw REAL NOT NULL,
		lcom5 REAL NOT NULL,
		noc INTEGER NOT NULL,
		ndc INTEGER NOT NULL,
		noi INTEGER NOT NULL,
		nom INTEGER NOT NULL,
		nomnamm INTEGER NOT NULL,
		nocs_package INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE inheritance (
		name TEXT PRIMARY KEY,
		children INTEGER NOT NULL,
		external INTEGER NOT NULL
	);

	CREATE TABLE packages (
		package TEXT PRIMARY KEY,
		classes INTEGER NOT NULL
	);

	CREATE INDEX idx_rows_class ON rows(package, class);
`

// WriteSQLite writes rep into a fresh SQLite database at path, replacing
// any existing file.
func WriteSQLite(ctx context.Context, path string, rep *Report) error {
	if err := writeSQLite(ctx, path, rep); err != nil {
		return errors.New(errors.ExportFailed, "sqlite export to "+path+" failed", err)
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, rep *Report) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open report database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create report schema: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO rows (
		seq, run_id, file, package, class, method, loc, max_nesting, cc, nolv,
		woc, wmc, wmc_namm, amw, lcom5, noc, ndc, noi, nom, nomnamm, nocs_package, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for i, r := range rep.Rows {
		if _, err := rowStmt.ExecContext(ctx,
			i, rep.RunID, r.File, r.Package, r.Class, r.Method, r.LOC, r.MaxNesting, r.CC, r.NOLV,
			r.WOC, r.WMC, r.WMCNAMM, r.AMW, r.LCOM5, r.NOC, r.NDC, r.NOI, r.NOM, r.NOMNAMM, r.NOCSPackage, r.Error,
		); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	for _, n := range rep.Inheritance {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inheritance (name, children, external) VALUES (?, ?, ?)`,
			n.Name, n.Children, n.External,
		); err != nil {
			return fmt.Errorf("failed to insert inheritance for %s: %w", n.Name, err)
		}
	}

	for _, p := range rep.Packages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO packages (package, classes) VALUES (?, ?)`,
			p.Package, p.Classes,
		); err != nil {
			return fmt.Errorf("failed to insert package %s: %w", p.Package, err)
		}
	}

	return tx.Commit()
}

// ReadSQLiteRows loads the rows table back in report order.
func ReadSQLiteRows(ctx context.Context, path string) ([]Row, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}
	defer conn.Close()

	rs, err := conn.QueryContext(ctx, `SELECT
		file, package, class, method, loc, max_nesting, cc, nolv, woc, wmc,
		wmc_namm, amw, lcom5, noc, ndc, noi, nom, nomnamm, nocs_package, error
		FROM rows ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var r Row
		if err := rs.Scan(
			&r.File, &r.Package, &r.Class, &r.Method, &r.LOC, &r.MaxNesting, &r.CC, &r.NOLV,
			&r.WOC, &r.WMC, &r.WMCNAMM, &r.AMW, &r.LCOM5, &r.NOC, &r.NDC, &r.NOI, &r.NOM, &r.NOMNAMM,
			&r.NOCSPackage, &r.Error,
		); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, rs.Err()
}
