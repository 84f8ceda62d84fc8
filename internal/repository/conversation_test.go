package repository

import (
	"errors"
	"testing"
)

func TestConversationIDSymmetric(t *testing.T) {
	a, err := ConversationID("u1", "u2")
	if err != nil {
		t.Fatalf("ConversationID: %v", err)
	}
	b, err := ConversationID("u2", "u1")
	if err != nil {
		t.Fatalf("ConversationID: %v", err)
	}
	if a != b {
		t.Errorf("id depends on argument order: %q vs %q", a, b)
	}
	if a != "u1_u2" {
		t.Errorf("id = %q, want u1_u2", a)
	}
}

func TestConversationIDSelf(t *testing.T) {
	// Заметки самому себе: оба участника совпадают.
	id, err := ConversationID("u1", "u1")
	if err != nil {
		t.Fatalf("ConversationID: %v", err)
	}
	if id != "u1_u1" {
		t.Errorf("id = %q, want u1_u1", id)
	}
}

func TestConversationIDBlankParticipant(t *testing.T) {
	for _, pair := range [][2]string{
		{"", "u2"},
		{"u1", ""},
		{"   ", "u2"},
		{"", ""},
	} {
		_, err := ConversationID(pair[0], pair[1])
		if !errors.Is(err, ErrInvalidParticipant) {
			t.Errorf("ConversationID(%q, %q): err = %v, want ErrInvalidParticipant", pair[0], pair[1], err)
		}
	}
}
