package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/homiefindr/internal/model"
)

func intPtr(v int) *int { return &v }

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return &d
}

func apt(id string, price *int, start, end string) model.ApartmentPost {
	return model.ApartmentPost{
		ID:             id,
		Title:          "Studio downtown",
		Content:        "Bright studio near campus",
		Price:          price,
		LeaseStartDate: start,
		LeaseEndDate:   end,
	}
}

func ids(posts []model.ApartmentPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestApartmentsPriceBounds(t *testing.T) {
	posts := []model.ApartmentPost{apt("a", intPtr(800), "", "")}

	tests := []struct {
		name string
		c    Criteria
		want int
	}{
		{"no bounds", Criteria{}, 1},
		{"min above price excludes", Criteria{MinPrice: intPtr(900)}, 0},
		{"max below price excludes", Criteria{MaxPrice: intPtr(700)}, 0},
		{"inside range includes", Criteria{MinPrice: intPtr(500), MaxPrice: intPtr(1000)}, 1},
		{"min equals price includes", Criteria{MinPrice: intPtr(800)}, 1},
		{"max equals price includes", Criteria{MaxPrice: intPtr(800)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apartments(posts, tt.c)
			if len(got) != tt.want {
				t.Errorf("got %d posts, want %d", len(got), tt.want)
			}
		})
	}
}

// Объявление без цены границы не исключают.
func TestApartmentsMissingPricePassesBounds(t *testing.T) {
	posts := []model.ApartmentPost{apt("a", nil, "", "")}
	c := Criteria{MinPrice: intPtr(500), MaxPrice: intPtr(1000)}
	if got := Apartments(posts, c); len(got) != 1 {
		t.Errorf("post without price should pass price bounds, got %d", len(got))
	}
}

// Объявление без даты (или с нечитаемой датой) активная граница исключает.
func TestApartmentsDateBounds(t *testing.T) {
	tests := []struct {
		name string
		post model.ApartmentPost
		c    Criteria
		want int
	}{
		{
			"start date before bound excludes",
			apt("a", nil, "01-01-2026", "06-30-2026"),
			Criteria{LeaseStart: datePtr(t, "02-01-2026")},
			0,
		},
		{
			"start date on bound includes",
			apt("a", nil, "02-01-2026", "06-30-2026"),
			Criteria{LeaseStart: datePtr(t, "02-01-2026")},
			1,
		},
		{
			"missing end date with end bound excludes",
			apt("a", nil, "01-01-2026", ""),
			Criteria{LeaseEnd: datePtr(t, "12-31-2026")},
			0,
		},
		{
			"unparsable date with bound excludes",
			apt("a", nil, "января 2026", ""),
			Criteria{LeaseStart: datePtr(t, "01-01-2026")},
			0,
		},
		{
			"missing dates without bounds pass",
			apt("a", nil, "", ""),
			Criteria{},
			1,
		},
		{
			"end date after bound excludes",
			apt("a", nil, "01-01-2026", "12-31-2026"),
			Criteria{LeaseEnd: datePtr(t, "06-30-2026")},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apartments([]model.ApartmentPost{tt.post}, tt.c)
			if len(got) != tt.want {
				t.Errorf("got %d posts, want %d", len(got), tt.want)
			}
		})
	}
}

func TestApartmentsQuery(t *testing.T) {
	posts := []model.ApartmentPost{
		{ID: "a", Title: "Sunny loft", Content: "Near the park"},
		{ID: "b", Title: "Basement room", Content: "Cheap and dark"},
	}
	got := Apartments(posts, Criteria{Query: "LOFT"})
	if !reflect.DeepEqual(ids(got), []string{"a"}) {
		t.Errorf("query match = %v, want [a]", ids(got))
	}
	got = Apartments(posts, Criteria{Query: "park"})
	if !reflect.DeepEqual(ids(got), []string{"a"}) {
		t.Errorf("content match = %v, want [a]", ids(got))
	}
	if got := Apartments(posts, Criteria{Query: "penthouse"}); len(got) != 0 {
		t.Errorf("no-match query returned %v", ids(got))
	}
}

func TestApartmentsPreservesOrderAndInput(t *testing.T) {
	posts := []model.ApartmentPost{
		apt("a", intPtr(700), "", ""),
		apt("b", intPtr(1200), "", ""),
		apt("c", intPtr(900), "", ""),
	}
	orig := make([]model.ApartmentPost, len(posts))
	copy(orig, posts)

	got := Apartments(posts, Criteria{MaxPrice: intPtr(1000)})
	if !reflect.DeepEqual(ids(got), []string{"a", "c"}) {
		t.Errorf("order = %v, want [a c]", ids(got))
	}
	if !reflect.DeepEqual(posts, orig) {
		t.Error("input slice was mutated")
	}
	// Повторный вызов с тем же входом — тот же результат.
	again := Apartments(posts, Criteria{MaxPrice: intPtr(1000)})
	if !reflect.DeepEqual(got, again) {
		t.Error("repeated call returned a different result")
	}
}

func TestApartmentsEmptyCriteriaReturnsAll(t *testing.T) {
	posts := []model.ApartmentPost{apt("a", nil, "", ""), apt("b", intPtr(500), "", "")}
	got := Apartments(posts, Criteria{})
	if len(got) != len(posts) {
		t.Errorf("got %d posts, want %d", len(got), len(posts))
	}
	if got := Apartments(nil, Criteria{}); len(got) != 0 {
		t.Errorf("nil input: got %d posts, want 0", len(got))
	}
}

func TestPeoplePriceRangeOverlap(t *testing.T) {
	person := func(id string, min, max *int) model.Post {
		return model.Post{PostID: id, Title: "Looking for roommate", PriceMin: min, PriceMax: max}
	}
	tests := []struct {
		name string
		post model.Post
		c    Criteria
		want int
	}{
		{"ranges overlap", person("a", intPtr(600), intPtr(900)), Criteria{MinPrice: intPtr(800), MaxPrice: intPtr(1000)}, 1},
		{"range below window", person("a", intPtr(300), intPtr(500)), Criteria{MinPrice: intPtr(800)}, 0},
		{"range above window", person("a", intPtr(1200), intPtr(1500)), Criteria{MaxPrice: intPtr(1000)}, 0},
		{"only min side set", person("a", intPtr(700), nil), Criteria{MaxPrice: intPtr(800)}, 1},
		{"no range passes bounds", person("a", nil, nil), Criteria{MinPrice: intPtr(800)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := People([]model.Post{tt.post}, tt.c)
			if len(got) != tt.want {
				t.Errorf("got %d posts, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCriteriaEmpty(t *testing.T) {
	if !(Criteria{}).Empty() {
		t.Error("zero criteria should be empty")
	}
	if (Criteria{Query: "x"}).Empty() {
		t.Error("criteria with query should not be empty")
	}
	if (Criteria{MinPrice: intPtr(0)}).Empty() {
		t.Error("criteria with zero min price should not be empty")
	}
}
