package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	chstore "prepaid-usage-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the database named in dsn if needed and applies
// the balance_records schema. Returns a connection to that database for the
// record store, plus the names of the applied files.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, []string, error) {
	dbName, err := DatabaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	migrations, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, nil, err
	}
	for _, m := range migrations {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return nil, nil, fmt.Errorf("validate migration %s: %w", m.Name, err)
		}
	}

	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		adminConn.Close()
		return nil, nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	applied := make([]string, 0, len(migrations))
	for _, m := range migrations {
		// the driver runs one statement per Exec
		for _, stmt := range splitStatements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		applied = append(applied, m.Name)
	}

	return conn, applied, nil
}

// splitStatements splits SQL on semicolons after dropping blank and "--" comment lines.
// It does not understand string literals or block comments; validateNoSemicolonInStrings
// rejects files that would be split wrongly.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects a semicolon inside a single-quoted literal.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			// Handle escaped quotes ''
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++ // skip next quote
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal - this breaks the migration splitter")
		}
	}
	return nil
}

// ErrMissingDatabase is returned when a ClickHouse DSN names no database.
var ErrMissingDatabase = errors.New("clickhouse dsn missing database")

// DatabaseFromDSN returns the database in the path of a clickhouse:// DSN.
func DatabaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", ErrMissingDatabase
	}
	return db, nil
}
