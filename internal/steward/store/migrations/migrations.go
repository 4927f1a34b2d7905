// Package migrations holds the ledger schema for each SQL dialect. The files
// are templates over the table name, because the table is configurable.
package migrations

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"testing/fstest"
	"text/template"
)

//go:embed sqlite/*.sql.tmpl postgres/*.sql.tmpl
var templates embed.FS

// Dialects with a migration set.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

type params struct {
	Table string
}

// Render executes every migration template of dialect for table and returns
// the result as a filesystem golang-migrate's iofs source can read. The
// caller validates table.
func Render(dialect, table string) (fs.FS, error) {
	entries, err := fs.ReadDir(templates, dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations: unknown dialect %q: %w", dialect, err)
	}

	out := fstest.MapFS{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql.tmpl") {
			continue
		}

		tmpl, err := template.ParseFS(templates, path.Join(dialect, name))
		if err != nil {
			return nil, fmt.Errorf("migrations: parse %s: %w", name, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, params{Table: table}); err != nil {
			return nil, fmt.Errorf("migrations: render %s: %w", name, err)
		}

		out[strings.TrimSuffix(name, ".tmpl")] = &fstest.MapFile{Data: buf.Bytes(), Mode: 0o444}
	}
	return out, nil
}
