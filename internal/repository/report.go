package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Create(ctx context.Context, rep *model.Report) error {
	defer logger.DeferLogDuration("report.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reports (id, author_id, title, content, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rep.ID, rep.AuthorID, rep.Title, rep.Content, rep.Status, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("reportRepo.Create: %w", err)
	}
	return nil
}

// List returns reports newest first. authorID "" lists all (admin view).
func (r *ReportRepository) List(ctx context.Context, authorID string, limit, offset int) ([]model.Report, error) {
	defer logger.DeferLogDuration("report.List", time.Now())()
	const cols = `id, author_id, title, content, status, reviewer_id, reviewed_at, created_at`
	var rows pgx.Rows
	var err error
	if authorID == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+cols+` FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+cols+` FROM reports WHERE author_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			authorID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("reportRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Report
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(&rep.ID, &rep.AuthorID, &rep.Title, &rep.Content, &rep.Status,
			&rep.ReviewerID, &rep.ReviewedAt, &rep.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

// SetStatus records an administrator's review decision.
func (r *ReportRepository) SetStatus(ctx context.Context, id string, status model.ReportStatus, reviewerID string) error {
	defer logger.DeferLogDuration("report.SetStatus", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE reports SET status = $2, reviewer_id = $3, reviewed_at = NOW() WHERE id = $1`,
		id, status, reviewerID)
	if err != nil {
		return fmt.Errorf("reportRepo.SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*model.Report, error) {
	defer logger.DeferLogDuration("report.GetByID", time.Now())()
	rep := &model.Report{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, author_id, title, content, status, reviewer_id, reviewed_at, created_at
		 FROM reports WHERE id = $1`, id).
		Scan(&rep.ID, &rep.AuthorID, &rep.Title, &rep.Content, &rep.Status,
			&rep.ReviewerID, &rep.ReviewedAt, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reportRepo.GetByID: %w", err)
	}
	return rep, nil
}
