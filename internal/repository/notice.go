package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

type NoticeRepository struct {
	pool *pgxpool.Pool
}

func NewNoticeRepository(pool *pgxpool.Pool) *NoticeRepository {
	return &NoticeRepository{pool: pool}
}

func (r *NoticeRepository) Create(ctx context.Context, n *model.Notice) error {
	defer logger.DeferLogDuration("notice.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notices (id, author_id, title, content, pinned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.AuthorID, n.Title, n.Content, n.Pinned, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("noticeRepo.Create: %w", err)
	}
	return nil
}

// List returns pinned notices first, then newest first.
func (r *NoticeRepository) List(ctx context.Context, limit, offset int) ([]model.Notice, error) {
	defer logger.DeferLogDuration("notice.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, title, content, pinned, created_at
		 FROM notices ORDER BY pinned DESC, created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("noticeRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Notice
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.Title, &n.Content, &n.Pinned, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("notice.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("noticeRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
