package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// MemberRepository owns the members table, including the single-session
// columns read and written by auth.SessionManager.
type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = `id, login_id, password_hash, name, department, avatar_url, session_id, session_expires_at, created_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	m := &model.Member{}
	err := row.Scan(&m.ID, &m.LoginID, &m.PasswordHash, &m.Name, &m.Department, &m.AvatarURL,
		&m.SessionID, &m.SessionExpiresAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) error {
	defer logger.DeferLogDuration("member.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, login_id, password_hash, name, department, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.LoginID, m.PasswordHash, m.Name, m.Department, m.AvatarURL, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("memberRepo.Create: %w", err)
	}
	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*model.Member, error) {
	defer logger.DeferLogDuration("member.GetByID", time.Now())()
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("memberRepo.GetByID: %w", err)
	}
	return m, err
}

func (r *MemberRepository) GetByLoginID(ctx context.Context, loginID string) (*model.Member, error) {
	defer logger.DeferLogDuration("member.GetByLoginID", time.Now())()
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE login_id = $1`, loginID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("memberRepo.GetByLoginID: %w", err)
	}
	return m, err
}

func (r *MemberRepository) List(ctx context.Context, limit, offset int) ([]model.MemberPublic, error) {
	defer logger.DeferLogDuration("member.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, login_id, name, department, avatar_url, created_at
		 FROM members ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("memberRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.MemberPublic
	for rows.Next() {
		var m model.MemberPublic
		if err := rows.Scan(&m.ID, &m.LoginID, &m.Name, &m.Department, &m.AvatarURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FindSession returns the member's session slot, (nil, nil) when signed out
// or the account does not exist.
func (r *MemberRepository) FindSession(ctx context.Context, accountID string) (*auth.StoredSession, error) {
	defer logger.DeferLogDuration("member.FindSession", time.Now())()
	var sessionID *string
	var expiresAt *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, session_expires_at FROM members WHERE id = $1`, accountID).
		Scan(&sessionID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("memberRepo.FindSession: %w", err)
	}
	if sessionID == nil || expiresAt == nil {
		return nil, nil
	}
	return &auth.StoredSession{SessionID: *sessionID, ExpiresAt: *expiresAt}, nil
}

// SetSession replaces the session slot in one atomic UPDATE, superseding any
// previous session.
func (r *MemberRepository) SetSession(ctx context.Context, accountID, sessionID string, expiresAt time.Time) error {
	defer logger.DeferLogDuration("member.SetSession", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET session_id = $2, session_expires_at = $3 WHERE id = $1`,
		accountID, sessionID, expiresAt)
	if err != nil {
		return fmt.Errorf("memberRepo.SetSession: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("memberRepo.SetSession: account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

// ClearSession nulls the slot. With a non-empty expectedSessionID only a
// matching slot is cleared; zero rows affected is not an error.
func (r *MemberRepository) ClearSession(ctx context.Context, accountID, expectedSessionID string) error {
	defer logger.DeferLogDuration("member.ClearSession", time.Now())()
	var err error
	if expectedSessionID == "" {
		_, err = r.pool.Exec(ctx,
			`UPDATE members SET session_id = NULL, session_expires_at = NULL WHERE id = $1`, accountID)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE members SET session_id = NULL, session_expires_at = NULL
			 WHERE id = $1 AND session_id = $2`, accountID, expectedSessionID)
	}
	if err != nil {
		return fmt.Errorf("memberRepo.ClearSession: %w", err)
	}
	return nil
}
