package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// driverName is the database/sql driver registered for d.
func (d dialect) driverName() string {
	return string(d)
}

// parseDSN picks the dialect from dsn and returns the data source name to
// hand to the driver.
func parseDSN(dsn string) (dialect, string) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return dialectPostgres, dsn
	case strings.HasPrefix(lower, "sqlite://"):
		return dialectSQLite, dsn[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		return dialectSQLite, dsn[len("sqlite:"):]
	default:
		return dialectSQLite, dsn
	}
}

// rebind rewrites ? placeholders into $n for PostgreSQL. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// historyType is the column type used for the JSON-encoded history.
func (d dialect) historyType() string {
	if d == dialectPostgres {
		return "JSONB"
	}
	return "TEXT"
}

// timestampType is the column type of created_at and updated_at. PostgreSQL
// uses native timestamps, matching tables written by other clients; SQLite
// keeps Unix milliseconds.
func (d dialect) timestampType() string {
	if d == dialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "BIGINT"
}

// bindTime converts t into the query argument for a timestamp column.
func (d dialect) bindTime(t time.Time) any {
	t = t.UTC().Truncate(time.Millisecond)
	if d == dialectPostgres {
		return t
	}
	return t.UnixMilli()
}

// timestamp scans a timestamp column of either dialect.
type timestamp struct {
	Time time.Time
}

// Scan implements sql.Scanner.
func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time = time.Time{}
	case int64:
		ts.Time = time.UnixMilli(v).UTC()
	case time.Time:
		ts.Time = v.UTC()
	default:
		return fmt.Errorf("sqlstore: unsupported timestamp type %T", src)
	}
	return nil
}
