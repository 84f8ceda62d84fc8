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

type ApartmentRepository struct {
	pool *pgxpool.Pool
}

func NewApartmentRepository(pool *pgxpool.Pool) *ApartmentRepository {
	return &ApartmentRepository{pool: pool}
}

func (r *ApartmentRepository) Create(ctx context.Context, p *model.ApartmentPost) error {
	defer logger.DeferLogDuration("apartment.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO apartment_posts
		   (id, title, content, price, lease_start_date, lease_end_date, lease_period,
		    owner_id, owner_email, created_at, image_urls)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Title, p.Content, p.Price,
		nullIfEmpty(p.LeaseStartDate), nullIfEmpty(p.LeaseEndDate), nullIfEmpty(p.LeasePeriod),
		p.OwnerID, p.OwnerEmail, p.CreatedAt, p.ImageURLs,
	)
	if err != nil {
		return fmt.Errorf("apartmentRepo.Create: %w", err)
	}
	return nil
}

func (r *ApartmentRepository) GetByID(ctx context.Context, id string) (*model.ApartmentPost, error) {
	defer logger.DeferLogDuration("apartment.GetByID", time.Now())()
	p := &model.ApartmentPost{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, content, price, COALESCE(lease_start_date,''), COALESCE(lease_end_date,''),
		        COALESCE(lease_period,''), owner_id, owner_email, created_at, image_urls
		 FROM apartment_posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Content, &p.Price, &p.LeaseStartDate, &p.LeaseEndDate,
		&p.LeasePeriod, &p.OwnerID, &p.OwnerEmail, &p.CreatedAt, &p.ImageURLs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apartmentRepo.GetByID: %w", err)
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return p, nil
}

// ListAll возвращает все объявления, новые первыми.
func (r *ApartmentRepository) ListAll(ctx context.Context) ([]model.ApartmentPost, error) {
	defer logger.DeferLogDuration("apartment.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, content, price, COALESCE(lease_start_date,''), COALESCE(lease_end_date,''),
		        COALESCE(lease_period,''), owner_id, owner_email, created_at, image_urls
		 FROM apartment_posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("apartmentRepo.ListAll: %w", err)
	}
	defer rows.Close()
	var list []model.ApartmentPost
	for rows.Next() {
		var p model.ApartmentPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Price, &p.LeaseStartDate, &p.LeaseEndDate,
			&p.LeasePeriod, &p.OwnerID, &p.OwnerEmail, &p.CreatedAt, &p.ImageURLs); err != nil {
			return nil, err
		}
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ApartmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.ApartmentPost, error) {
	defer logger.DeferLogDuration("apartment.ListByOwner", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, content, price, COALESCE(lease_start_date,''), COALESCE(lease_end_date,''),
		        COALESCE(lease_period,''), owner_id, owner_email, created_at, image_urls
		 FROM apartment_posts WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("apartmentRepo.ListByOwner: %w", err)
	}
	defer rows.Close()
	var list []model.ApartmentPost
	for rows.Next() {
		var p model.ApartmentPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Price, &p.LeaseStartDate, &p.LeaseEndDate,
			&p.LeasePeriod, &p.OwnerID, &p.OwnerEmail, &p.CreatedAt, &p.ImageURLs); err != nil {
			return nil, err
		}
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete удаляет объявление владельца. false — нет строки или чужое объявление.
func (r *ApartmentRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	defer logger.DeferLogDuration("apartment.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM apartment_posts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("apartmentRepo.Delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
