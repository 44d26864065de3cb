package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/thomhuang/printnearby/internal/store/migrations"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d == dialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// SQLStore implements ProviderStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent chunk queries
	db.SetMaxOpenConns(1)

	return newSQLStore(ctx, db, dialectSQLite)
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return newSQLStore(ctx, db, dialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, migrations.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) FindByZips(ctx context.Context, zips []string) ([]Provider, error) {
	if err := checkFilter(zips); err != nil {
		return nil, err
	}
	if len(zips) == 0 {
		return nil, nil
	}

	marks := make([]string, len(zips))
	args := make([]any, len(zips))
	for i, z := range zips {
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = z
	}
	query := `SELECT id, name, zip, materials, status, created_at FROM providers
		WHERE zip IN (` + strings.Join(marks, ", ") + `) ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var (
			p         Provider
			materials string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Zip, &materials, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		if err := json.Unmarshal([]byte(materials), &p.Materials); err != nil {
			return nil, fmt.Errorf("decode materials for %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Upsert(ctx context.Context, p Provider) error {
	if err := checkProvider(p); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	if p.Materials == nil {
		p.Materials = []string{}
	}
	materials, err := json.Marshal(p.Materials)
	if err != nil {
		return fmt.Errorf("encode materials: %w", err)
	}

	ph := s.dialect.placeholder
	query := `INSERT INTO providers (id, name, zip, materials, status, created_at)
		VALUES (` + strings.Join([]string{ph(1), ph(2), ph(3), ph(4), ph(5), ph(6)}, ", ") + `)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			zip = excluded.zip,
			materials = excluded.materials,
			status = excluded.status`

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Zip, string(materials), p.Status, p.CreatedAt); err != nil {
		return fmt.Errorf("upsert provider %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
