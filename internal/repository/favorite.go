package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/homiefindr/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FavoriteKind — какую коллекцию избранного трогаем: квартиры или анкеты.
type FavoriteKind string

const (
	FavoriteApartments FavoriteKind = "apartments"
	FavoritePeople     FavoriteKind = "people"
)

func (k FavoriteKind) table() string {
	if k == FavoritePeople {
		return "favorite_people_posts"
	}
	return "favorite_apartments"
}

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Add добавляет объявление в избранное. Повторное добавление — no-op.
func (r *FavoriteRepository) Add(ctx context.Context, kind FavoriteKind, uid, postID string) error {
	defer logger.DeferLogDuration("favorite.Add", time.Now())()
	_, err := r.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (uid, post_id, added_at) VALUES ($1, $2, NOW())
		 ON CONFLICT DO NOTHING`, kind.table()),
		uid, postID,
	)
	if err != nil {
		return fmt.Errorf("favoriteRepo.Add: %w", err)
	}
	return nil
}

// Remove убирает объявление из избранного. Отсутствующая запись — no-op.
func (r *FavoriteRepository) Remove(ctx context.Context, kind FavoriteKind, uid, postID string) error {
	defer logger.DeferLogDuration("favorite.Remove", time.Now())()
	_, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE uid = $1 AND post_id = $2`, kind.table()),
		uid, postID,
	)
	if err != nil {
		return fmt.Errorf("favoriteRepo.Remove: %w", err)
	}
	return nil
}

// ListIDs возвращает id избранных объявлений пользователя в порядке добавления.
func (r *FavoriteRepository) ListIDs(ctx context.Context, kind FavoriteKind, uid string) ([]string, error) {
	defer logger.DeferLogDuration("favorite.ListIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT post_id FROM %s WHERE uid = $1 ORDER BY added_at`, kind.table()), uid)
	if err != nil {
		return nil, fmt.Errorf("favoriteRepo.ListIDs: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Has проверяет, в избранном ли объявление.
func (r *FavoriteRepository) Has(ctx context.Context, kind FavoriteKind, uid, postID string) (bool, error) {
	defer logger.DeferLogDuration("favorite.Has", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE uid = $1 AND post_id = $2`, kind.table()),
		uid, postID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("favoriteRepo.Has: %w", err)
	}
	return n > 0, nil
}
