package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostRepository — анкеты людей, ищущих жильё (коллекция posts).
type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	defer logger.DeferLogDuration("post.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts
		   (post_id, creator_id, title, bio, price_min, price_max,
		    lease_start_date, lease_end_date, image_urls, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.PostID, p.CreatorID, p.Title, p.Bio, p.PriceMin, p.PriceMax,
		nullIfEmpty(p.LeaseStartDate), nullIfEmpty(p.LeaseEndDate), p.ImageURLs, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postRepo.Create: %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	defer logger.DeferLogDuration("post.GetByID", time.Now())()
	p := &model.Post{}
	err := r.pool.QueryRow(ctx,
		`SELECT post_id, creator_id, title, COALESCE(bio,''), price_min, price_max,
		        COALESCE(lease_start_date,''), COALESCE(lease_end_date,''), image_urls, created_at
		 FROM posts WHERE post_id = $1`, postID,
	).Scan(&p.PostID, &p.CreatorID, &p.Title, &p.Bio, &p.PriceMin, &p.PriceMax,
		&p.LeaseStartDate, &p.LeaseEndDate, &p.ImageURLs, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postRepo.GetByID: %w", err)
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return p, nil
}

func (r *PostRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT post_id, creator_id, title, COALESCE(bio,''), price_min, price_max,
		        COALESCE(lease_start_date,''), COALESCE(lease_end_date,''), image_urls, created_at
		 FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postRepo.ListAll: %w", err)
	}
	defer rows.Close()
	var list []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.PostID, &p.CreatorID, &p.Title, &p.Bio, &p.PriceMin, &p.PriceMax,
			&p.LeaseStartDate, &p.LeaseEndDate, &p.ImageURLs, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepository) ListByCreator(ctx context.Context, creatorID string) ([]model.Post, error) {
	defer logger.DeferLogDuration("post.ListByCreator", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT post_id, creator_id, title, COALESCE(bio,''), price_min, price_max,
		        COALESCE(lease_start_date,''), COALESCE(lease_end_date,''), image_urls, created_at
		 FROM posts WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("postRepo.ListByCreator: %w", err)
	}
	defer rows.Close()
	var list []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.PostID, &p.CreatorID, &p.Title, &p.Bio, &p.PriceMin, &p.PriceMax,
			&p.LeaseStartDate, &p.LeaseEndDate, &p.ImageURLs, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepository) Delete(ctx context.Context, postID, creatorID string) (bool, error) {
	defer logger.DeferLogDuration("post.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM posts WHERE post_id = $1 AND creator_id = $2`, postID, creatorID)
	if err != nil {
		return false, fmt.Errorf("postRepo.Delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
