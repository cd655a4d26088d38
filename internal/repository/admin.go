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

// AdminRepository owns the admins table. The session columns mirror the
// members table but live in their own collection: principal kinds are never
// mixed, not even in storage.
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

const adminColumns = `id, login_id, password_hash, name, session_id, session_expires_at, created_at`

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	a := &model.Admin{}
	err := row.Scan(&a.ID, &a.LoginID, &a.PasswordHash, &a.Name,
		&a.SessionID, &a.SessionExpiresAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	defer logger.DeferLogDuration("admin.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (id, login_id, password_hash, name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.LoginID, a.PasswordHash, a.Name, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("adminRepo.Create: %w", err)
	}
	return nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	defer logger.DeferLogDuration("admin.Count", time.Now())()
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("adminRepo.Count: %w", err)
	}
	return n, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	defer logger.DeferLogDuration("admin.GetByID", time.Now())()
	a, err := scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("adminRepo.GetByID: %w", err)
	}
	return a, err
}

func (r *AdminRepository) GetByLoginID(ctx context.Context, loginID string) (*model.Admin, error) {
	defer logger.DeferLogDuration("admin.GetByLoginID", time.Now())()
	a, err := scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE login_id = $1`, loginID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("adminRepo.GetByLoginID: %w", err)
	}
	return a, err
}

// FindSession returns the admin's session slot, (nil, nil) when signed out.
func (r *AdminRepository) FindSession(ctx context.Context, accountID string) (*auth.StoredSession, error) {
	defer logger.DeferLogDuration("admin.FindSession", time.Now())()
	var sessionID *string
	var expiresAt *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, session_expires_at FROM admins WHERE id = $1`, accountID).
		Scan(&sessionID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("adminRepo.FindSession: %w", err)
	}
	if sessionID == nil || expiresAt == nil {
		return nil, nil
	}
	return &auth.StoredSession{SessionID: *sessionID, ExpiresAt: *expiresAt}, nil
}

// SetSession replaces the session slot in one atomic UPDATE.
func (r *AdminRepository) SetSession(ctx context.Context, accountID, sessionID string, expiresAt time.Time) error {
	defer logger.DeferLogDuration("admin.SetSession", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET session_id = $2, session_expires_at = $3 WHERE id = $1`,
		accountID, sessionID, expiresAt)
	if err != nil {
		return fmt.Errorf("adminRepo.SetSession: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adminRepo.SetSession: account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

// ClearSession nulls the slot, conditionally when expectedSessionID is set.
func (r *AdminRepository) ClearSession(ctx context.Context, accountID, expectedSessionID string) error {
	defer logger.DeferLogDuration("admin.ClearSession", time.Now())()
	var err error
	if expectedSessionID == "" {
		_, err = r.pool.Exec(ctx,
			`UPDATE admins SET session_id = NULL, session_expires_at = NULL WHERE id = $1`, accountID)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE admins SET session_id = NULL, session_expires_at = NULL
			 WHERE id = $1 AND session_id = $2`, accountID, expectedSessionID)
	}
	if err != nil {
		return fmt.Errorf("adminRepo.ClearSession: %w", err)
	}
	return nil
}
