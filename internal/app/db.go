package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

const (
	dbPingTimeout        = 10 * time.Second
	maxTracedQueryLength = 512
)

// dbPool sizes the connection pool for one binary. The range runner writes
// one draw at a time and needs far fewer connections than the API.
type dbPool struct {
	component string
	maxOpen   int
	maxIdle   int
}

var (
	apiPool         = dbPool{component: "api", maxOpen: 10, maxIdle: 5}
	rangeRunnerPool = dbPool{component: "scrape-range", maxOpen: 2, maxIdle: 1}
)

// OpenDB opens an instrumented Postgres pool and verifies it with a ping.
func OpenDB(ctx context.Context, cfg config.Config, pool dbPool, logger *logging.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = logging.Default()
	}

	dbName := dbNameFromURL(cfg.DBURL)
	dsn := postgresDSN(cfg.DBURL, cfg.ServiceName+"/"+pool.component, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbName),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(pool.maxOpen)
	db.SetMaxIdleConns(pool.maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)
	otelsql.ReportDBStatsMetrics(db.DB, otelsql.WithDBName(dbName))

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	logger.Info("database connected", "db_name", dbName, "pool", pool.component, "max_open", pool.maxOpen)
	return db, nil
}

// postgresDSN tags URL-style DSNs with an application_name so pg_stat_activity
// tells the API and the range runner apart. binaryParams turns on lib/pq
// binary parameters, which skips the named prepared statement round trip
// that transaction poolers reject. Explicit values in raw win.
func postgresDSN(raw, appName string, binaryParams bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	if appName != "" && query.Get("application_name") == "" {
		query.Set("application_name", appName)
	}
	if binaryParams && query.Get("binary_parameters") == "" {
		query.Set("binary_parameters", "yes")
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// dbNameFromURL reads the database name from a URL or key=value DSN.
func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}
	for _, token := range strings.Fields(trimmed) {
		if name, ok := strings.CutPrefix(token, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

// formatDBQueryForTrace folds a statement onto one line and caps its length
// without splitting a UTF-8 sequence.
func formatDBQueryForTrace(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	cut := maxTracedQueryLength
	for cut > 0 && !utf8.RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + "..."
}
