package model

import "time"

// Conversation — диалог 1-на-1. ID детерминирован парой участников
// (отсортированные uid через "_"), поэтому для пары существует не более
// одного диалога.
type Conversation struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	LastMsg   string    `json:"lastMsg"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
