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

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	defer logger.DeferLogDuration("listing.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO listings (id, seller_id, title, description, price, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.SellerID, l.Title, l.Description, l.Price, l.Status, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("listingRepo.Create: %w", err)
	}
	return nil
}

func (r *ListingRepository) List(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	defer logger.DeferLogDuration("listing.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, seller_id, title, description, price, status, created_at
		 FROM listings ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listingRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	defer logger.DeferLogDuration("listing.GetByID", time.Now())()
	l := &model.Listing{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, seller_id, title, description, price, status, created_at
		 FROM listings WHERE id = $1`, id).
		Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Status, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("listingRepo.GetByID: %w", err)
	}
	return l, nil
}

// SetStatus marks a listing open/sold. Only the seller may change it.
func (r *ListingRepository) SetStatus(ctx context.Context, id, sellerID string, status model.ListingStatus) error {
	defer logger.DeferLogDuration("listing.SetStatus", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE listings SET status = $3 WHERE id = $1 AND seller_id = $2`, id, sellerID, status)
	if err != nil {
		return fmt.Errorf("listingRepo.SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("listing.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("listingRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
