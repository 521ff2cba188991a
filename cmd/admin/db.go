package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// queries maps a db subcommand to its statement. Every statement takes the
// row limit as its only argument.
var queries = map[string]string{
	"lineups":    `SELECT seq,session,race,race_num,boat_type,score,ideal_score,mistakes,time_offset FROM lineups ORDER BY seq DESC LIMIT ?`,
	"slots":      `SELECT seq,slot,position,member,score FROM lineup_slots ORDER BY seq DESC, slot LIMIT ?`,
	"promotions": `SELECT race_num,from_type,to_type,recorded_at FROM promotions ORDER BY race_num DESC LIMIT ?`,
	"races":      `SELECT race,score,archive_path,recorded_at FROM races ORDER BY race DESC LIMIT ?`,
	"saves":      `SELECT session,path,bytes,recorded_at FROM saves ORDER BY session DESC LIMIT ?`,
	"catalogs":   `SELECT name,digest,updated_at FROM catalogs ORDER BY name LIMIT ?`,
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	game := fs.String("game", "", "game id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "lineups"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*game) == "" {
			fmt.Fprintln(os.Stderr, "missing -game or -db")
			os.Exit(2)
		}
		path = filepath.Join(gameDir(*dataDir, *game), "index", "game.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := queryRows(db, os.Stdout, q, *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// queryRows prints one JSON object per row, keyed by column name.
func queryRows(db *sql.DB, out io.Writer, q string, limit int) error {
	stmt, ok := queries[q]
	if !ok {
		return fmt.Errorf("unknown query %q", q)
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(stmt, limit)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		b, _ := json.Marshal(row)
		fmt.Fprintln(out, string(b))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}
