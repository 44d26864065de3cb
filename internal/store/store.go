// Package store persists provider listings and answers the one query the
// search service needs: all providers whose ZIP is in a small set.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxInFilter is the largest ZIP set a single FindByZips call accepts. It
// mirrors the membership-filter cap of the document store the listings were
// first kept in; callers must chunk larger sets.
const MaxInFilter = 10

var (
	// ErrFilterTooLarge is returned when a membership filter exceeds MaxInFilter.
	ErrFilterTooLarge = errors.New("membership filter exceeds datastore cap")

	// ErrInvalidProvider is returned by Upsert for incomplete records.
	ErrInvalidProvider = errors.New("invalid provider")
)

// Provider is a printing-service listing.
type Provider struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Zip       string   `json:"zip" yaml:"zip"`
	Materials []string `json:"materials,omitempty" yaml:"materials"`
	Status    string   `json:"status" yaml:"status"`
	CreatedAt int64    `json:"created_at" yaml:"created_at"`
}

// ProviderStore is the record store consumed by the search service.
type ProviderStore interface {
	// FindByZips returns every provider whose zip is in zips, in a stable
	// store-defined order. len(zips) must not exceed MaxInFilter.
	FindByZips(ctx context.Context, zips []string) ([]Provider, error)
	Upsert(ctx context.Context, p Provider) error
	Close() error
}

func checkFilter(zips []string) error {
	if len(zips) > MaxInFilter {
		return fmt.Errorf("%w: %d values, cap is %d", ErrFilterTooLarge, len(zips), MaxInFilter)
	}
	return nil
}

func checkProvider(p Provider) error {
	var missing []string
	if p.ID == "" {
		missing = append(missing, "id")
	}
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Zip == "" {
		missing = append(missing, "zip")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidProvider, strings.Join(missing, ", "))
	}
	return nil
}

// Open picks a backend from the DSN:
//   - "" opens sqlite at data/printnearby.db
//   - "memory:" opens an in-memory store
//   - postgres:// or postgresql:// opens PostgreSQL through pgx
//   - anything else is a sqlite path
func Open(ctx context.Context, dsn string) (ProviderStore, error) {
	switch {
	case dsn == "":
		return OpenSQLite(ctx, "data/printnearby.db")
	case dsn == "memory:" || dsn == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	default:
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	}
}
