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

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get возвращает профиль вместе со списками избранного.
func (r *ProfileRepository) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	defer logger.DeferLogDuration("profile.Get", time.Now())()
	p := &model.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT uid, name, email, COALESCE(bio,''), COALESCE(profile_image_url,''),
		        price_min, price_max, COALESCE(lease_start_date,''), COALESCE(lease_end_date,'')
		 FROM user_profiles WHERE uid = $1`, uid,
	).Scan(&p.UID, &p.Name, &p.Email, &p.Bio, &p.ProfileImageURL,
		&p.PriceMin, &p.PriceMax, &p.LeaseStartDate, &p.LeaseEndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profileRepo.Get: %w", err)
	}
	postIDs, userIDs, err := r.favoriteIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	p.FavoritePostIDs = postIDs
	p.FavoriteUserIDs = userIDs
	return p, nil
}

// EnsureExists создаёт пустой профиль при первом входе. Повторный вызов — no-op.
func (r *ProfileRepository) EnsureExists(ctx context.Context, uid, email string) error {
	defer logger.DeferLogDuration("profile.EnsureExists", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_profiles (uid, name, email)
		 VALUES ($1, '', $2) ON CONFLICT (uid) DO NOTHING`,
		uid, email,
	)
	if err != nil {
		return fmt.Errorf("profileRepo.EnsureExists: %w", err)
	}
	return nil
}

// Update перезаписывает редактируемые поля профиля. Избранное меняется через FavoriteRepository.
func (r *ProfileRepository) Update(ctx context.Context, p *model.UserProfile) error {
	defer logger.DeferLogDuration("profile.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles SET name = $1, bio = $2, profile_image_url = $3,
		        price_min = $4, price_max = $5, lease_start_date = $6, lease_end_date = $7
		 WHERE uid = $8`,
		p.Name, p.Bio, p.ProfileImageURL, p.PriceMin, p.PriceMax,
		nullIfEmpty(p.LeaseStartDate), nullIfEmpty(p.LeaseEndDate), p.UID,
	)
	if err != nil {
		return fmt.Errorf("profileRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll возвращает все профили (экран поиска соседей).
func (r *ProfileRepository) ListAll(ctx context.Context) ([]model.UserProfile, error) {
	defer logger.DeferLogDuration("profile.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT uid, name, email, COALESCE(bio,''), COALESCE(profile_image_url,''),
		        price_min, price_max, COALESCE(lease_start_date,''), COALESCE(lease_end_date,'')
		 FROM user_profiles ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("profileRepo.ListAll: %w", err)
	}
	defer rows.Close()
	var list []model.UserProfile
	for rows.Next() {
		var p model.UserProfile
		if err := rows.Scan(&p.UID, &p.Name, &p.Email, &p.Bio, &p.ProfileImageURL,
			&p.PriceMin, &p.PriceMax, &p.LeaseStartDate, &p.LeaseEndDate); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProfileRepository) favoriteIDs(ctx context.Context, uid string) (postIDs, userIDs []string, err error) {
	rows, err := r.pool.Query(ctx,
		`SELECT post_id FROM favorite_apartments WHERE uid = $1 ORDER BY added_at`, uid)
	if err != nil {
		return nil, nil, fmt.Errorf("profileRepo.favoriteIDs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		postIDs = append(postIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	rows2, err := r.pool.Query(ctx,
		`SELECT post_id FROM favorite_people_posts WHERE uid = $1 ORDER BY added_at`, uid)
	if err != nil {
		return nil, nil, fmt.Errorf("profileRepo.favoriteIDs: %w", err)
	}
	defer rows2.Close()
	for rows2.Next() {
		var id string
		if err := rows2.Scan(&id); err != nil {
			return nil, nil, err
		}
		userIDs = append(userIDs, id)
	}
	return postIDs, userIDs, rows2.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
