package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ColumnLookup returns a function reporting the column names of each
// requested table, sourced from sqlite's table_info pragma. Tables that
// do not exist are omitted from the result.
func ColumnLookup(db *sql.DB) func(ctx context.Context, tables []string) (map[string][]string, error) {
	return func(ctx context.Context, tables []string) (map[string][]string, error) {
		out := make(map[string][]string, len(tables))
		for _, table := range tables {
			rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
			if err != nil {
				return nil, err
			}
			var cols []string
			for rows.Next() {
				var (
					cid     int
					name    string
					ctype   string
					notNull int
					dflt    sql.NullString
					pk      int
				)
				if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
					rows.Close()
					return nil, err
				}
				cols = append(cols, name)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, err
			}
			if len(cols) > 0 {
				out[table] = cols
			}
		}
		return out, nil
	}
}
