package middleware

import "testing"

func TestMaskSessionID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abcdef123456", "abcd***"},
		{"abcd", "****"},
		{"", "****"},
		{"  abcdef  ", "abcd***"},
	}
	for _, tt := range tests {
		if got := MaskSessionID(tt.in); got != tt.want {
			t.Errorf("MaskSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
