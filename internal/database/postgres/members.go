package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const memberColumns = `id, first_name, last_name, email, password_hash, embedding, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*database.Member, error) {
	var m database.Member
	var vec *pgvector.Vector
	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PasswordHash, &vec, &m.CreatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		m.Embedding = vec.Slice()
	}
	return &m, nil
}

func scanMembers(rows *sql.Rows) ([]database.Member, error) {
	var members []database.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// GetMember retrieves a member by ID.
func (r *txRepo) GetMember(ctx context.Context, id int64) (*database.Member, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get member %d", id))
	}
	return m, nil
}

// GetMemberByEmail retrieves a member by case-insensitive email.
func (r *txRepo) GetMemberByEmail(ctx context.Context, email string) (*database.Member, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE LOWER(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	m, err := scanMember(row)
	if err != nil {
		return nil, mapError(err, "get member by email")
	}
	return m, nil
}

// GetMembers retrieves the members that exist among ids.
func (r *txRepo) GetMembers(ctx context.Context, ids []int64) (map[int64]*database.Member, error) {
	result := make(map[int64]*database.Member, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members, err := scanMembers(rows)
	if err != nil {
		return nil, err
	}
	for i := range members {
		result[members[i].ID] = &members[i]
	}
	return result, nil
}

// CreateMember inserts a member. The email is stored lowercased.
func (r *txRepo) CreateMember(ctx context.Context, m *database.Member) error {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))

	var embedding any
	if len(m.Embedding) > 0 {
		embedding = pgvector.NewVector(m.Embedding)
	}

	err := r.tx.QueryRowContext(ctx, `
		INSERT INTO members (first_name, last_name, email, password_hash, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.FirstName, m.LastName, m.Email, m.PasswordHash, embedding).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return mapError(err, "insert member")
	}
	return nil
}

// SetMemberEmbedding replaces the reference embedding of a member.
func (r *txRepo) SetMemberEmbedding(ctx context.Context, id int64, embedding []float32) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE members SET embedding = $1 WHERE id = $2`, pgvector.NewVector(embedding), id)
	if err != nil {
		return mapError(err, "update member embedding")
	}
	n, err := rowsAffected(res, "update member embedding")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member %d: %w", id, database.ErrNotFound)
	}
	return nil
}

// ListEnrolledMembers returns every member with a reference embedding.
func (r *txRepo) ListEnrolledMembers(ctx context.Context) ([]database.Member, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query enrolled members: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}
