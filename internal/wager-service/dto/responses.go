package dto

import "time"

type WagerResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Stake     string    `json:"stake"`
	Chance    float64   `json:"chance"`
	Payout    string    `json:"payout"`
	Win       bool      `json:"win"`
	CreatedAt time.Time `json:"created_at"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WagersPage struct {
	Items      []WagerResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type UsersPage struct {
	Items      []UserResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
