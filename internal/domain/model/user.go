package model

import (
	"time"
)

// User is an observed handle. Existence is the only fact recorded.
type User struct {
	ID        string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Rename is a single forward edge from an old handle to its successor.
type Rename struct {
	From      string    `json:"user_id_from"`
	To        string    `json:"user_id_to"`
	CreatedAt time.Time `json:"created_at"`
}
