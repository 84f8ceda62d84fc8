package model

import "time"

// User — учётная запись (auth-сервис). PasswordHash наружу не отдаётся.
type User struct {
	UID          string     `json:"uid"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	DisabledAt   *time.Time `json:"-"` // не null = пользователь отключён, не может войти
}

// UserProfile — публичный профиль с предпочтениями по жилью.
// Создаётся при первом входе, если отсутствует; редактируется только владельцем.
type UserProfile struct {
	UID             string `json:"uid"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profileImageUrl"`
	PriceMin        *int   `json:"priceMin,omitempty"`
	PriceMax        *int   `json:"priceMax,omitempty"`
	LeaseStartDate  string `json:"leaseStartDate,omitempty"`
	LeaseEndDate    string `json:"leaseEndDate,omitempty"`
	// Идентификаторы избранного: объявления квартир и анкеты соседей раздельно.
	FavoritePostIDs []string `json:"favoritePostIds"`
	FavoriteUserIDs []string `json:"favoriteUserIds"`
}
