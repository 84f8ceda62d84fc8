package model

import "time"

// DateLayout — формат дат аренды в объявлениях ("01-02-2006" = MM-dd-yyyy).
// Исторический формат мобильного клиента, менять нельзя без миграции данных.
const DateLayout = "01-02-2006"

// ApartmentPost — объявление о сдаче квартиры.
// Цена опциональна: старые документы могут не содержать поле price.
type ApartmentPost struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Price          *int     `json:"price,omitempty"`
	LeaseStartDate string   `json:"leaseStartDate,omitempty"`
	LeaseEndDate   string   `json:"leaseEndDate,omitempty"`
	// LeasePeriod — legacy-поле старых документов, где период был одной строкой.
	LeasePeriod string   `json:"leasePeriod,omitempty"`
	OwnerID     string   `json:"ownerId"`
	OwnerEmail  string   `json:"ownerEmail"`
	CreatedAt   int64    `json:"createdAt"` // epoch millis
	ImageURLs   []string `json:"imageUrls"`
}

// LeasePeriodText возвращает период аренды для поиска и отображения:
// пара дат или legacy-строка.
func (p *ApartmentPost) LeasePeriodText() string {
	if p.LeaseStartDate != "" || p.LeaseEndDate != "" {
		return p.LeaseStartDate + " - " + p.LeaseEndDate
	}
	return p.LeasePeriod
}

// Post — объявление человека, ищущего жильё (анкета соседа).
type Post struct {
	PostID         string    `json:"postId"`
	CreatorID      string    `json:"creatorId"`
	Title          string    `json:"title"`
	Bio            string    `json:"bio"`
	PriceMin       *int      `json:"priceMin,omitempty"`
	PriceMax       *int      `json:"priceMax,omitempty"`
	LeaseStartDate string    `json:"leaseStartDate,omitempty"`
	LeaseEndDate   string    `json:"leaseEndDate,omitempty"`
	ImageURLs      []string  `json:"imageUrls"`
	CreatedAt      time.Time `json:"createdAt"`
}
