package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"usfconnect.africa/internal/directory"
	"usfconnect.africa/internal/ids"
	"usfconnect.africa/internal/roles"
)

var _ directory.Store = (*Store)(nil)

const memberColumns = `id, email, name, country, role, password_hash, status, created_at, updated_at`

func (s *Store) CreateMember(ctx context.Context, m directory.Member) (directory.Member, error) {
	m.ID = ids.New()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		insert into members (id, email, name, country, role, password_hash, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.Email, m.Name, m.Country, m.Role.String(), m.PasswordHash, m.Status, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return directory.Member{}, directory.ErrConflict
		}
		return directory.Member{}, err
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, id string) (directory.Member, error) {
	row := s.db.QueryRowContext(ctx, `select `+memberColumns+` from members where id = $1`, id)
	return scanMember(row)
}

func (s *Store) GetMemberByEmail(ctx context.Context, email string) (directory.Member, error) {
	row := s.db.QueryRowContext(ctx, `select `+memberColumns+` from members where email = $1`, email)
	return scanMember(row)
}

func (s *Store) ListMembers(ctx context.Context, country string) ([]directory.Member, error) {
	query := `select ` + memberColumns + ` from members order by created_at desc`
	args := []any{}
	if country != "" {
		query = `select ` + memberColumns + ` from members where country = $1 order by created_at desc`
		args = append(args, country)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMemberRole(ctx context.Context, id string, role roles.Role) (directory.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		update members set role = $2, updated_at = now()
		where id = $1
		returning `+memberColumns, id, role.String())
	return scanMember(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (directory.Member, error) {
	var m directory.Member
	var role string
	err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Country, &role, &m.PasswordHash, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Member{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Member{}, err
	}
	m.Role = roles.Parse(role)
	return m, nil
}
