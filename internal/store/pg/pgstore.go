// Package pg implements the portal read model on postgres: head-only counts,
// bounded recency-ordered activity fetches, and the member directory.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"usfconnect.africa/internal/activity"
	"usfconnect.africa/internal/stats"
)

type Store struct {
	db *sql.DB
}

var (
	_ stats.Counter   = (*Store)(nil)
	_ activity.Source = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests and cmd wiring.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// countTables allow-lists every countable table and, per table, the timestamp
// columns a window filter may use. Identifiers cannot be bound as SQL
// parameters, so anything outside this map is rejected before query assembly.
var countTables = map[string]map[string]bool{
	"countries":   {},
	"projects":    {"created_at": true},
	"partners":    {"created_at": true},
	"events":      {"created_at": true, "starts_at": true},
	"documents":   {"created_at": true, "uploaded_at": true},
	"discussions": {"created_at": true},
	"members":     {"created_at": true},
}

// Count returns the total row count for an allow-listed table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if _, ok := countTables[table]; !ok {
		return 0, fmt.Errorf("pg: table %q is not countable", table)
	}
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`select count(*) from %s`, table)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountSince returns the row count with the timestamp column at or after
// cutoff.
func (s *Store) CountSince(ctx context.Context, table, field string, cutoff time.Time) (int64, error) {
	fields, ok := countTables[table]
	if !ok {
		return 0, fmt.Errorf("pg: table %q is not countable", table)
	}
	if !fields[field] {
		return 0, fmt.Errorf("pg: column %q is not filterable on %s", field, table)
	}
	var count int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from %s where %s >= $1`, table, field), cutoff,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RecentProjects fetches the newest projects for the activity feed.
func (s *Store) RecentProjects(ctx context.Context, limit int) ([]activity.ProjectRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, coalesce(c.name, ''), p.created_at
		from projects p
		left join countries c on c.id = p.country_id
		order by p.created_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.ProjectRow
	for rows.Next() {
		var r activity.ProjectRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Country, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentDocuments fetches the newest documents.
func (s *Store) RecentDocuments(ctx context.Context, limit int) ([]activity.DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		select d.id, d.title, coalesce(c.name, ''), d.uploaded_at
		from documents d
		left join countries c on c.id = d.country_id
		order by d.uploaded_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.DocumentRow
	for rows.Next() {
		var r activity.DocumentRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Country, &r.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentEvents fetches the newest events by start time.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]activity.EventRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		select e.id, e.title, coalesce(c.name, ''), e.starts_at
		from events e
		left join countries c on c.id = e.country_id
		order by e.starts_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.EventRow
	for rows.Next() {
		var r activity.EventRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Country, &r.StartsAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentDiscussions fetches the newest forum threads.
func (s *Store) RecentDiscussions(ctx context.Context, limit int) ([]activity.DiscussionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		select t.id, t.topic, coalesce(c.name, ''), t.posted_at
		from discussions t
		left join countries c on c.id = t.country_id
		order by t.posted_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.DiscussionRow
	for rows.Next() {
		var r activity.DiscussionRow
		if err := rows.Scan(&r.ID, &r.Topic, &r.Country, &r.PostedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
