package sqlite

import (
	"context"
	"fmt"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
	"github.com/artpar/envspec/ports"
)

// PrefixStore implements ports.PrefixStore using SQLite.
type PrefixStore struct {
	db    *DB
	clock ports.Clock
}

// NewPrefixStore creates a new prefix store.
func NewPrefixStore(db *DB, clock ports.Clock) *PrefixStore {
	return &PrefixStore{db: db, clock: clock}
}

// Records returns the package records of a prefix in insertion order.
func (s *PrefixStore) Records(ctx context.Context, prefixPath string) ([]prefix.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, build, package_type, channel
		FROM package_records
		WHERE prefix = ?
		ORDER BY rowid
	`, prefixPath)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var result []prefix.Record
	for rows.Next() {
		var r prefix.Record
		var packageType string
		if err := rows.Scan(&r.Name, &r.Version, &r.Build, &packageType, &r.Channel); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.PackageType = prefix.PackageType(packageType)
		result = append(result, r)
	}
	return result, rows.Err()
}

// EnvVars returns the environment variables of a prefix in insertion order.
func (s *PrefixStore) EnvVars(ctx context.Context, prefixPath string) (*ordered.Map[string], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM env_vars WHERE prefix = ? ORDER BY rowid
	`, prefixPath)
	if err != nil {
		return nil, fmt.Errorf("query env vars: %w", err)
	}
	defer rows.Close()

	result := ordered.New[string]()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan env var: %w", err)
		}
		result.Set(key, value)
	}
	return result, rows.Err()
}

// PutRecord inserts a record or updates the one with the same name in place.
func (s *PrefixStore) PutRecord(ctx context.Context, prefixPath string, r prefix.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO package_records (prefix, name, version, build, package_type, channel, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(prefix, name) DO UPDATE SET
			version = excluded.version,
			build = excluded.build,
			package_type = excluded.package_type,
			channel = excluded.channel,
			updated_at = excluded.updated_at
	`, prefixPath, r.Name, r.Version, r.Build, string(r.PackageType), r.Channel,
		s.clock.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put record %s: %w", r.Name, err)
	}
	return nil
}

// SetEnvVar inserts or updates an environment variable.
func (s *PrefixStore) SetEnvVar(ctx context.Context, prefixPath, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO env_vars (prefix, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(prefix, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, prefixPath, key, value, s.clock.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("set env var %s: %w", key, err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.PrefixStore = (*PrefixStore)(nil)
