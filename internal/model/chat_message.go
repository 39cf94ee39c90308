package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn of a user's assistant conversation.
// Role: "user" | "ai"
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
