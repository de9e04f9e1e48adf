package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/adminkit/internal/store"
)

// SQLite stores each resource as one table of JSON documents. It is the
// persistent counterpart of Memory for single-process deployments and
// demos; production systems inject their own fetch/mutate functions.
type SQLite struct {
	db    *sql.DB
	table string
}

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// OpenSQLite prepares the table for one resource.
func OpenSQLite(ctx context.Context, db *sql.DB, resource string) (*SQLite, error) {
	if !tableName.MatchString(resource) {
		return nil, fmt.Errorf("backend: invalid resource name %q", resource)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, resource)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("backend: creating table %s: %w", resource, err)
	}
	return &SQLite{db: db, table: resource}, nil
}

// List returns one page ordered by creation time. When filters are present
// the match runs over the decoded documents, so pagination is applied after
// filtering.
func (s *SQLite) List(ctx context.Context, p store.ListParams) (store.ListResult, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT data FROM %s ORDER BY created_at, id", s.table))
	if err != nil {
		return store.ListResult{}, fmt.Errorf("backend: listing %s: %w", s.table, err)
	}
	defer rows.Close()

	var matched []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return store.ListResult{}, err
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return store.ListResult{}, fmt.Errorf("backend: decoding %s row: %w", s.table, err)
		}
		if matchesFilter(rec, p.Filter) {
			matched = append(matched, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return store.ListResult{}, err
	}
	total := len(matched)
	start, end := pageBounds(p.Page, p.Limit, total)
	return store.ListResult{Items: matched[start:end], Total: total}, nil
}

// Get returns the entity with the given id.
func (s *SQLite) Get(ctx context.Context, id string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.table), id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("backend: reading %s/%s: %w", s.table, id, err)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("backend: decoding %s/%s: %w", s.table, id, err)
	}
	return rec, nil
}

// Save upserts the entity, minting an id for creates.
func (s *SQLite) Save(ctx context.Context, values map[string]any) (map[string]any, error) {
	rec := make(map[string]any, len(values))
	for k, v := range values {
		rec[k] = v
	}
	id, _ := rec["id"].(string)
	if id == "" {
		id = uuid.NewString()
		rec["id"] = id
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("backend: encoding %s/%s: %w", s.table, id, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.table), id, string(raw), now, now)
	if err != nil {
		return nil, fmt.Errorf("backend: saving %s/%s: %w", s.table, id, err)
	}
	return rec, nil
}

// Delete removes the entity with the given id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table), id)
	if err != nil {
		return fmt.Errorf("backend: deleting %s/%s: %w", s.table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
