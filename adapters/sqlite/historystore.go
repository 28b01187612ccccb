package sqlite

import (
	"context"
	"fmt"

	"github.com/artpar/envspec/domain/prefix"
	"github.com/artpar/envspec/pkg/ordered"
	"github.com/artpar/envspec/ports"
)

// HistoryStore implements ports.HistoryStore using SQLite.
type HistoryStore struct {
	db    *DB
	ids   ports.IDGenerator
	clock ports.Clock
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(db *DB, ids ports.IDGenerator, clock ports.Clock) *HistoryStore {
	return &HistoryStore{db: db, ids: ids, clock: clock}
}

// RequestedSpecs returns the latest request per package name, ordered by
// each name's first request.
func (s *HistoryStore) RequestedSpecs(ctx context.Context, prefixPath string) ([]prefix.RequestedSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version FROM request_history WHERE prefix = ? ORDER BY rowid
	`, prefixPath)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	latest := ordered.New[prefix.RequestedSpec]()
	for rows.Next() {
		var spec prefix.RequestedSpec
		if err := rows.Scan(&spec.Name, &spec.Version); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		latest.Set(spec.Name, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]prefix.RequestedSpec, 0, latest.Len())
	latest.Range(func(_ string, spec prefix.RequestedSpec) bool {
		result = append(result, spec)
		return true
	})
	return result, nil
}

// RecordRequest appends a request to the history.
func (s *HistoryStore) RecordRequest(ctx context.Context, prefixPath string, spec prefix.RequestedSpec) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_history (id, prefix, name, version, requested_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ids.New(), prefixPath, spec.Name, spec.Version, s.clock.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record request %s: %w", spec.Name, err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.HistoryStore = (*HistoryStore)(nil)
