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

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	defer logger.DeferLogDuration("post.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, author_id, title, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.AuthorID, p.Title, p.Content, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Create: %w", err)
	}
	return nil
}

func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, title, content, created_at
		 FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	defer logger.DeferLogDuration("post.GetByID", time.Now())()
	p := &model.Post{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, author_id, title, content, created_at FROM posts WHERE id = $1`, id).
		Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postRepo.GetByID: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("post.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
