package model

import "testing"

func TestLeasePeriodText(t *testing.T) {
	tests := []struct {
		name string
		post ApartmentPost
		want string
	}{
		{"both dates", ApartmentPost{LeaseStartDate: "01-01-2026", LeaseEndDate: "06-30-2026"}, "01-01-2026 - 06-30-2026"},
		{"start only", ApartmentPost{LeaseStartDate: "01-01-2026"}, "01-01-2026 - "},
		{"legacy period string", ApartmentPost{LeasePeriod: "Spring semester"}, "Spring semester"},
		{"dates win over legacy", ApartmentPost{LeaseStartDate: "01-01-2026", LeasePeriod: "Spring"}, "01-01-2026 - "},
		{"nothing", ApartmentPost{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.LeasePeriodText(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
