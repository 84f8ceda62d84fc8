package service

import "testing"

func TestValidPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Abc123", true},
		{"Str0ngPassword", true},
		{"abc123", false},   // нет заглавной
		{"ABC123", false},   // нет строчной
		{"Abcdef", false},   // нет цифры
		{"Ab1", false},      // короче шести символов
		{"", false},
		{"Пароль1", false}, // кириллица не даёт [a-z]/[A-Z]
	}
	for _, tt := range tests {
		if got := ValidPassword(tt.password); got != tt.want {
			t.Errorf("ValidPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestEmailRegexp(t *testing.T) {
	valid := []string{"user@example.com", "first.last+tag@sub.domain.org"}
	invalid := []string{"", "user", "user@", "@example.com", "user@example", "user name@example.com"}
	for _, e := range valid {
		if !emailRegexp.MatchString(e) {
			t.Errorf("valid email rejected: %q", e)
		}
	}
	for _, e := range invalid {
		if emailRegexp.MatchString(e) {
			t.Errorf("invalid email accepted: %q", e)
		}
	}
}
