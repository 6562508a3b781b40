package task

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// openReadOnly opens an existing SQLite database without write access.
// The path is made absolute so the URI never gains an authority part.
func openReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

// formatScalar renders a single SQL result value as text. NULL is 0, the
// sum of no rows.
func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// queryScalar runs query and returns the first column of the first row.
func queryScalar(ctx context.Context, db *sql.DB, query string) (string, error) {
	var v any
	err := db.QueryRowContext(ctx, query).Scan(&v)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return formatScalar(v), nil
}

type salesArgs struct {
	Filename       string `json:"filename"`
	OutputFilename string `json:"output_filename"`
	Query          string `json:"query"`
}

func (a salesArgs) Validate() error {
	q := strings.ToUpper(strings.TrimSpace(a.Query))
	if !strings.HasPrefix(q, "SELECT") && !strings.HasPrefix(q, "WITH") {
		return fmt.Errorf("query must be a SELECT statement")
	}
	return requirePaths("filename", a.Filename, "output_filename", a.OutputFilename)
}

func ticketSalesTask() Task {
	desc := protocol.TaskDescriptor{
		Name: "ticket_sales",
		Description: "Run a SQL query against a SQLite database of tickets (columns: type, units, price), " +
			"e.g. total sales of all Gold tickets as SUM(units * price), and write the single result to an output file.",
		Params: []protocol.ParamSpec{
			str("filename", "SQLite database file"),
			str("output_filename", "File to write the result to"),
			str("query", "SELECT statement returning one value"),
		},
	}
	return newHandler(desc, func(ctx context.Context, a salesArgs) error {
		db, err := openReadOnly(a.Filename)
		if err != nil {
			return fmt.Errorf("ticket_sales: %w", err)
		}
		defer db.Close()

		total, err := queryScalar(ctx, db, a.Query)
		if err != nil {
			return fmt.Errorf("ticket_sales: query: %w", err)
		}
		return writeOutput(a.OutputFilename, []byte(total))
	})
}
