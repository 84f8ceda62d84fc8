// Package filter — чистая фильтрация списков объявлений по критериям поиска.
// Функции не мутируют вход и не ходят в сеть: один и тот же вход всегда
// даёт один и тот же результат, порядок исходного списка сохраняется.
package filter

import (
	"strings"
	"time"

	"github.com/homiefindr/internal/model"
)

// Criteria — критерии фильтрации. Нулевое значение пропускает всё.
// Nil-поле означает «граница не задана».
type Criteria struct {
	// Query — подстрока без учёта регистра по заголовку, описанию и периоду аренды.
	Query string
	// Границы цены. Объявление без цены НЕ исключается границей:
	// исторически подтверждённое поведение продукта, не менять молча.
	MinPrice *int
	MaxPrice *int
	// Границы дат аренды. Объявление без соответствующей даты ИСКЛЮЧАЕТСЯ,
	// как только граница задана (асимметрия с ценой — тоже поведение продукта).
	LeaseStart *time.Time
	LeaseEnd   *time.Time
}

// Empty сообщает, что ни один критерий не задан.
func (c Criteria) Empty() bool {
	return c.Query == "" && c.MinPrice == nil && c.MaxPrice == nil &&
		c.LeaseStart == nil && c.LeaseEnd == nil
}

// Apartments возвращает новый срез объявлений о квартирах, прошедших критерии.
func Apartments(posts []model.ApartmentPost, c Criteria) []model.ApartmentPost {
	out := make([]model.ApartmentPost, 0, len(posts))
	for _, p := range posts {
		if apartmentMatches(&p, c) {
			out = append(out, p)
		}
	}
	return out
}

// People возвращает новый срез анкет соседей, прошедших критерии.
func People(posts []model.Post, c Criteria) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if personMatches(&p, c) {
			out = append(out, p)
		}
	}
	return out
}

func apartmentMatches(p *model.ApartmentPost, c Criteria) bool {
	if !textMatches(c.Query, p.Title, p.Content, p.LeasePeriodText()) {
		return false
	}
	if !priceInBounds(p.Price, p.Price, c.MinPrice, c.MaxPrice) {
		return false
	}
	return datesInBounds(p.LeaseStartDate, p.LeaseEndDate, c.LeaseStart, c.LeaseEnd)
}

func personMatches(p *model.Post, c Criteria) bool {
	leaseText := ""
	if p.LeaseStartDate != "" || p.LeaseEndDate != "" {
		leaseText = p.LeaseStartDate + " - " + p.LeaseEndDate
	}
	if !textMatches(c.Query, p.Title, p.Bio, leaseText) {
		return false
	}
	if !priceInBounds(p.PriceMin, p.PriceMax, c.MinPrice, c.MaxPrice) {
		return false
	}
	return datesInBounds(p.LeaseStartDate, p.LeaseEndDate, c.LeaseStart, c.LeaseEnd)
}

func textMatches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// priceInBounds проверяет пересечение диапазона цены объявления [lo, hi]
// с окном фильтра [min, max]. Для квартир lo == hi (одна цена).
// Nil-сторона диапазона подменяется другой стороной; если цены нет вовсе —
// границы не исключают объявление.
func priceInBounds(lo, hi, min, max *int) bool {
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}
	if min != nil {
		if hi != nil && *hi < *min {
			return false
		}
	}
	if max != nil {
		if lo != nil && *lo > *max {
			return false
		}
	}
	return true
}

// datesInBounds сравнивает даты объявления с границами фильтра.
// Дату не удалось распарсить или её нет, а граница задана — объявление не проходит.
func datesInBounds(startStr, endStr string, boundStart, boundEnd *time.Time) bool {
	if boundStart != nil {
		start, ok := parseDate(startStr)
		if !ok || start.Before(*boundStart) {
			return false
		}
	}
	if boundEnd != nil {
		end, ok := parseDate(endStr)
		if !ok || end.After(*boundEnd) {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
